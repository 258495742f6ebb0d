package restreamer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"polyemesis/internal/services"
)

const fsPath = "/api/v3/fs"

// ListFilesystems returns the storage backends the server exposes.
func (c *Client) ListFilesystems(ctx context.Context) ([]FilesystemInfo, error) {
	var raw []json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, fsPath, nil, &raw); err != nil {
		return nil, err
	}

	filesystems := make([]FilesystemInfo, 0, len(raw))
	for _, item := range raw {
		f, ok := objectFields(item)
		if !ok {
			continue
		}
		filesystems = append(filesystems, FilesystemInfo{
			Name:  f.str("name"),
			Type:  f.str("type"),
			Mount: f.str("mount"),
		})
	}
	return filesystems, nil
}

// ListFiles lists the entries on one storage backend, optionally narrowed by
// a glob pattern.
func (c *Client) ListFiles(ctx context.Context, storage, glob string) ([]FileEntry, error) {
	if strings.TrimSpace(storage) == "" {
		return nil, services.Wrap(services.ErrValidation, component, "list files", "storage name is required", nil)
	}
	path := fsPath + "/" + storage
	if glob != "" {
		path += "?glob=" + url.QueryEscape(glob)
	}

	var raw []json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}

	entries := make([]FileEntry, 0, len(raw))
	for _, item := range raw {
		entries = append(entries, parseFileEntry(item))
	}
	return entries, nil
}

// DownloadFile fetches the raw contents of one file.
func (c *Client) DownloadFile(ctx context.Context, storage, filePath string) ([]byte, error) {
	if strings.TrimSpace(storage) == "" || strings.TrimSpace(filePath) == "" {
		return nil, services.Wrap(services.ErrValidation, component, "download file", "storage and path are required", nil)
	}
	return c.doRaw(ctx, http.MethodGet, fileURL(storage, filePath), "", nil)
}

// UploadFile writes contents to one file, replacing it if it exists.
func (c *Client) UploadFile(ctx context.Context, storage, filePath string, contents []byte) error {
	if strings.TrimSpace(storage) == "" || strings.TrimSpace(filePath) == "" {
		return services.Wrap(services.ErrValidation, component, "upload file", "storage and path are required", nil)
	}
	_, err := c.doRaw(ctx, http.MethodPut, fileURL(storage, filePath), "application/data", contents)
	return err
}

// DeleteFile removes one file from a storage backend.
func (c *Client) DeleteFile(ctx context.Context, storage, filePath string) error {
	if strings.TrimSpace(storage) == "" || strings.TrimSpace(filePath) == "" {
		return services.Wrap(services.ErrValidation, component, "delete file", "storage and path are required", nil)
	}
	_, err := c.doRaw(ctx, http.MethodDelete, fileURL(storage, filePath), "", nil)
	return err
}

func fileURL(storage, filePath string) string {
	return fsPath + "/" + storage + "/" + strings.TrimPrefix(filePath, "/")
}
