package driveStore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/akolanti/LibraryRAG/internal/domain/ragErrors"
	"github.com/akolanti/LibraryRAG/internal/rag/objectStore"
	"github.com/akolanti/LibraryRAG/pkg/logger_i"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const folderMimeType = "application/vnd.google-apps.folder"

// Store maps folders to Drive folders under a root folder id; refs are Drive file ids.
type Store struct {
	service *drive.Service
	root    string
	logger  *logger_i.Logger

	folderLock sync.Mutex
	folders    map[string]string
}

// New builds a Drive client from a service account key file. An empty root means "My Drive".
func New(ctx context.Context, credentialsFile string, rootFolderId string) (*Store, error) {
	opts := []option.ClientOption{option.WithScopes(drive.DriveScope)}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return NewWithService(svc, rootFolderId), nil
}

func NewWithService(svc *drive.Service, rootFolderId string) *Store {
	if rootFolderId == "" {
		rootFolderId = "root"
	}
	return &Store{
		service: svc,
		root:    rootFolderId,
		logger:  logger_i.NewLogger("drive_object_store"),
		folders: make(map[string]string),
	}
}

func (s *Store) Put(ctx context.Context, data []byte, name string, folder string) (string, error) {
	folderId, err := s.folderId(ctx, folder)
	if err != nil {
		return "", err
	}
	file, err := s.service.Files.Create(&drive.File{Name: name, Parents: []string{folderId}}).
		Media(bytes.NewReader(data)).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", wrap("put", err)
	}
	s.logger.Debug("uploaded file to drive", "name", name, "folder", folder, "fileId", file.Id)
	return file.Id, nil
}

func (s *Store) Get(ctx context.Context, ref string) ([]byte, error) {
	resp, err := s.service.Files.Get(ref).Context(ctx).Download()
	if err != nil {
		return nil, wrap("get", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ragErrors.RemoteUnavailableError{Op: "get", Err: err}
	}
	return data, nil
}

func (s *Store) Delete(ctx context.Context, ref string) error {
	err := s.service.Files.Delete(ref).Context(ctx).Do()
	if isNotFound(err) {
		return nil
	}
	return wrap("delete", err)
}

func (s *Store) List(ctx context.Context, folder string) ([]objectStore.Object, error) {
	folderId, err := s.folderId(ctx, folder)
	if err != nil {
		return nil, err
	}

	var out []objectStore.Object
	pageToken := ""
	for {
		call := s.service.Files.List().
			Q(fmt.Sprintf("'%s' in parents and trashed = false and mimeType != '%s'", folderId, folderMimeType)).
			Fields("nextPageToken, files(id, name, createdTime)").
			PageSize(200).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		list, err := call.Do()
		if err != nil {
			return nil, wrap("list", err)
		}
		for _, f := range list.Files {
			created, _ := time.Parse(time.RFC3339, f.CreatedTime)
			out = append(out, objectStore.Object{Name: f.Name, Ref: f.Id, CreatedTime: created})
		}
		if list.NextPageToken == "" {
			break
		}
		pageToken = list.NextPageToken
	}
	return out, nil
}

// folderId finds or creates the named folder under the root and caches the id.
func (s *Store) folderId(ctx context.Context, folder string) (string, error) {
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return s.root, nil
	}

	s.folderLock.Lock()
	defer s.folderLock.Unlock()
	if id, ok := s.folders[folder]; ok {
		return id, nil
	}

	query := fmt.Sprintf("name = '%s' and mimeType = '%s' and '%s' in parents and trashed = false",
		escapeQuery(folder), folderMimeType, s.root)
	list, err := s.service.Files.List().Q(query).Fields("files(id, name)").Context(ctx).Do()
	if err != nil {
		return "", wrap("find folder", err)
	}
	if len(list.Files) > 0 {
		s.folders[folder] = list.Files[0].Id
		return list.Files[0].Id, nil
	}

	created, err := s.service.Files.Create(&drive.File{
		Name:     folder,
		MimeType: folderMimeType,
		Parents:  []string{s.root},
	}).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", wrap("create folder", err)
	}
	s.logger.Info("created drive folder", "folder", folder, "folderId", created.Id)
	s.folders[folder] = created.Id
	return created.Id, nil
}

func escapeQuery(v string) string {
	return strings.ReplaceAll(v, "'", `\'`)
}

func isNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}

// wrap turns throttling and server side failures into RemoteUnavailableError, the rest pass through.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == http.StatusNotFound:
			return fmt.Errorf("drive %s: %w", op, ragErrors.ErrNotFound)
		case gerr.Code == http.StatusTooManyRequests || gerr.Code >= 500:
			return &ragErrors.RemoteUnavailableError{Op: "drive " + op, Err: err}
		default:
			return fmt.Errorf("drive %s: %w", op, err)
		}
	}
	// transport level failures (dns, timeouts) are transient too
	return &ragErrors.RemoteUnavailableError{Op: "drive " + op, Err: err}
}
