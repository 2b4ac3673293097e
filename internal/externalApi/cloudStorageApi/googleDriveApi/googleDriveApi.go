package googleDriveApi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"time"

	"github.com/KotFed0t/fondos_backoffice/config"
	"github.com/KotFed0t/fondos_backoffice/utils"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const (
	downloadLinkTemplate = "https://drive.google.com/file/d/%s/view"

	// ReportPrefix marks files this service owns; only those are expired.
	ReportPrefix = "reporte_fondos_"
)

type GoogleDriveApi struct {
	srv      *drive.Service
	folderID string
	ttl      time.Duration
	now      func() time.Time
}

func New(ctx context.Context, cfg *config.Config, opts ...option.ClientOption) (*GoogleDriveApi, error) {
	if len(opts) == 0 {
		opts = []option.ClientOption{option.WithCredentialsFile(cfg.GoogleDrive.CredentialsFile)}
	}

	srv, err := drive.NewService(ctx, opts...)
	if err != nil {
		slog.Error("failed on drive.NewService", slog.String("err", err.Error()))
		return nil, fmt.Errorf("google drive service: %w", err)
	}

	return &GoogleDriveApi{
		srv:      srv,
		folderID: cfg.GoogleDrive.FolderID,
		ttl:      cfg.GoogleDrive.FileTTL,
		now:      time.Now,
	}, nil
}

// UploadFile stores a report readable by anyone with the link and returns
// that link.
func (a *GoogleDriveApi) UploadFile(ctx context.Context, reader io.Reader, filename string) (downloadLink string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "GoogleDriveApi.UploadFile"

	slog.Debug("UploadFile start", slog.String("rqID", rqID), slog.String("op", op), slog.String("filename", filename))
	defer func() {
		if err != nil {
			slog.Error("UploadFile failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	meta := &drive.File{
		Name:        ReportPrefix + filename,
		MimeType:    mime.TypeByExtension(filepath.Ext(filename)),
		Description: "Reporte de fondos",
	}
	if a.folderID != "" {
		meta.Parents = []string{a.folderID}
	}

	uploaded, err := a.srv.Files.Create(meta).Media(reader).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", meta.Name, err)
	}

	_, err = a.srv.Permissions.Create(uploaded.Id, &drive.Permission{Type: "anyone", Role: "reader"}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("share %s: %w", uploaded.Id, err)
	}

	slog.Debug("UploadFile completed", slog.String("rqID", rqID), slog.String("op", op), slog.String("fileID", uploaded.Id))
	return fmt.Sprintf(downloadLinkTemplate, uploaded.Id), nil
}

// DeleteOldFiles removes reports older than the configured TTL. Failures on
// single files are logged and skipped.
func (a *GoogleDriveApi) DeleteOldFiles(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "GoogleDriveApi.DeleteOldFiles"

	slog.Debug("DeleteOldFiles start", slog.String("rqID", rqID), slog.String("op", op))

	var files []*drive.File
	err := a.srv.Files.List().
		Q(a.reportsQuery()).
		Fields("nextPageToken, files(id, name, createdTime)").
		Context(ctx).
		Pages(ctx, func(page *drive.FileList) error {
			files = append(files, page.Files...)
			return nil
		})
	if err != nil {
		slog.Error("failed on listing reports", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	expired := expiredFiles(ctx, files, a.now().Add(-a.ttl))

	deleted := 0
	for _, f := range expired {
		if err := a.srv.Files.Delete(f.Id).Context(ctx).Do(); err != nil {
			slog.Error("failed delete file", slog.String("rqID", rqID), slog.String("op", op), slog.String("fileID", f.Id), slog.String("err", err.Error()))
			continue
		}
		deleted++
	}

	if deleted > 0 {
		if err := a.srv.Files.EmptyTrash().Context(ctx).Do(); err != nil {
			slog.Error("failed empty trash", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}

	slog.Info("delete old reports done", slog.String("rqID", rqID), slog.Int("deletedFiles", deleted), slog.Int("remaining files", len(files)-deleted))
	return nil
}

func (a *GoogleDriveApi) reportsQuery() string {
	q := fmt.Sprintf("name contains '%s' and trashed = false", ReportPrefix)
	if a.folderID != "" {
		q += fmt.Sprintf(" and '%s' in parents", a.folderID)
	}
	return q
}

// expiredFiles keeps files created before cutoff. Files with an unreadable
// creation time are kept in storage.
func expiredFiles(ctx context.Context, files []*drive.File, cutoff time.Time) []*drive.File {
	var out []*drive.File
	for _, f := range files {
		created, err := time.Parse(time.RFC3339, f.CreatedTime)
		if err != nil {
			slog.Warn("unreadable createdTime", slog.String("rqID", utils.GetRequestIDFromCtx(ctx)), slog.String("fileID", f.Id), slog.String("createdTime", f.CreatedTime))
			continue
		}
		if created.Before(cutoff) {
			out = append(out, f)
		}
	}
	return out
}
