package googleDriveApi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/KotFed0t/fondos_backoffice/config"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

func TestExpiredFiles(t *testing.T) {
	cutoff := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	files := []*drive.File{
		{Id: "old", CreatedTime: "2024-02-01T10:00:00Z"},
		{Id: "new", CreatedTime: "2024-03-02T10:00:00Z"},
		{Id: "broken", CreatedTime: "yesterday"},
	}

	expired := expiredFiles(context.Background(), files, cutoff)
	require.Len(t, expired, 1)
	require.Equal(t, "old", expired[0].Id)
}

func TestReportsQuery(t *testing.T) {
	a := &GoogleDriveApi{}
	require.Equal(t, "name contains 'reporte_fondos_' and trashed = false", a.reportsQuery())

	a.folderID = "folder1"
	require.Equal(t, "name contains 'reporte_fondos_' and trashed = false and 'folder1' in parents", a.reportsQuery())
}

func TestDeleteOldFiles(t *testing.T) {
	var (
		mu      sync.Mutex
		deleted []string
		emptied bool
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/files"):
			if r.URL.Query().Get("pageToken") == "" {
				_, _ = w.Write([]byte(`{"nextPageToken":"p2","files":[{"id":"a","name":"reporte_fondos_a.xlsx","createdTime":"2024-01-01T00:00:00Z"}]}`))
				return
			}
			_, _ = w.Write([]byte(`{"files":[{"id":"b","name":"reporte_fondos_b.xlsx","createdTime":"2024-03-09T00:00:00Z"}]}`))
		case r.Method == http.MethodDelete && strings.HasSuffix(r.URL.Path, "/files/trash"):
			emptied = true
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodDelete:
			parts := strings.Split(r.URL.Path, "/")
			deleted = append(deleted, parts[len(parts)-1])
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	cfg := &config.Config{}
	cfg.GoogleDrive.FileTTL = 7 * 24 * time.Hour

	api, err := New(context.Background(), cfg,
		option.WithEndpoint(srv.URL+"/drive/v3/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	api.now = func() time.Time { return time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC) }

	require.NoError(t, api.DeleteOldFiles(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"a"}, deleted)
	require.True(t, emptied)
}
