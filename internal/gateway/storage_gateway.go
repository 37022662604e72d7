package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"gopkg.in/yaml.v3"

	"github.com/kazz187/collabspace/pkg/cerr"
	"github.com/kazz187/collabspace/pkg/storage"
)

const docExt = ".yaml"

// StorageGateway keeps each document as a YAML file <collection>/<id>.yaml.
type StorageGateway struct {
	storage storage.Storage
	// mu serialises read-modify-write in Update within this process only.
	mu sync.Mutex
}

var _ Gateway = (*StorageGateway)(nil)

func NewStorageGateway(s storage.Storage) *StorageGateway {
	return &StorageGateway{storage: s}
}

func docPath(collection, id string) string {
	return storage.Join(collection, id+docExt)
}

func validateName(kind, name string) error {
	if name == "" || strings.ContainsAny(name, "/\\") || name == "." || name == ".." {
		return cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("invalid %s %q", kind, name), nil)
	}
	return nil
}

func (g *StorageGateway) Insert(ctx context.Context, collection string, fields Fields) (string, error) {
	if err := validateName("collection", collection); err != nil {
		return "", err
	}
	doc := &Document{ID: ulid.Make().String(), Fields: fields.clone()}
	if err := g.write(ctx, collection, doc); err != nil {
		return "", err
	}
	slog.DebugContext(ctx, "document inserted", "collection", collection, "id", doc.ID)
	return doc.ID, nil
}

func (g *StorageGateway) Get(ctx context.Context, collection, id string) (*Document, bool, error) {
	if err := validateName("collection", collection); err != nil {
		return nil, false, err
	}
	if err := validateName("id", id); err != nil {
		return nil, false, err
	}
	doc, err := g.read(ctx, docPath(collection, id))
	if err != nil {
		if cerr.IsCode(err, cerr.NotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return doc, true, nil
}

func (g *StorageGateway) Query(ctx context.Context, collection string, pred Predicate) ([]*Document, error) {
	if err := validateName("collection", collection); err != nil {
		return nil, err
	}
	paths, err := g.storage.List(ctx, collection)
	if err != nil {
		return nil, cerr.WrapStorageReadError(collection, err)
	}

	// ULID file names keep List order equal to insertion order.
	var docs []*Document
	for _, p := range paths {
		if !strings.HasSuffix(p, docExt) {
			continue
		}
		doc, err := g.read(ctx, p)
		if err != nil {
			slog.WarnContext(ctx, "skipping unreadable document", "path", p, "error", err)
			continue
		}
		if pred.Match(doc.Fields) {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (g *StorageGateway) Update(ctx context.Context, collection, id string, fields Fields) error {
	if err := validateName("collection", collection); err != nil {
		return err
	}
	if err := validateName("id", id); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	doc, err := g.read(ctx, docPath(collection, id))
	if err != nil {
		return err
	}
	if doc.Fields == nil {
		doc.Fields = Fields{}
	}
	for k, v := range fields {
		doc.Fields[k] = v
	}
	return g.write(ctx, collection, doc)
}

func (g *StorageGateway) read(ctx context.Context, path string) (*Document, error) {
	data, err := g.storage.Read(ctx, path)
	if err != nil {
		return nil, cerr.WrapStorageReadError("document", err)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, cerr.NewError(cerr.DataLoss, "corrupt document", fmt.Errorf("failed to unmarshal %s: %w", path, err))
	}
	return &doc, nil
}

func (g *StorageGateway) write(ctx context.Context, collection string, doc *Document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal document: %w", err))
	}
	if err := g.storage.Write(ctx, docPath(collection, doc.ID), data); err != nil {
		return cerr.WrapStorageWriteError("document", err)
	}
	return nil
}
