package document

import (
	"context"
	"errors"
	"iter"
	"slices"
	"testing"
	"time"

	"github.com/kailas-cloud/docassist/internal/domain"
	dombatch "github.com/kailas-cloud/docassist/internal/domain/batch"
	domdoc "github.com/kailas-cloud/docassist/internal/domain/document"
)

// --- Mocks ---

type stored struct {
	content []byte
	meta    domdoc.Metadata
}

type mockStore struct {
	docs      map[string]stored
	existsErr error
	putErr    map[string]error
	deleteErr error
	namesErr  error
	puts      []string
}

func newMockStore() *mockStore {
	return &mockStore{docs: map[string]stored{}, putErr: map[string]error{}}
}

func (m *mockStore) doc(name string) domdoc.Document {
	s := m.docs[name]
	return domdoc.Reconstruct(name, domdoc.ContentTypeFor(name), int64(len(s.content)),
		time.Time{}, "https://files/"+name, s.meta)
}

func (m *mockStore) List(_ context.Context) iter.Seq2[domdoc.Document, error] {
	return func(yield func(domdoc.Document, error) bool) {
		names, err := m.Names(context.Background())
		if err != nil {
			yield(domdoc.Document{}, err)
			return
		}
		for _, n := range names {
			if !yield(m.doc(n), nil) {
				return
			}
		}
	}
}

func (m *mockStore) Get(_ context.Context, name string) (domdoc.Document, error) {
	if _, ok := m.docs[name]; !ok {
		return domdoc.Document{}, domain.ErrDocumentNotFound
	}
	return m.doc(name), nil
}

func (m *mockStore) Names(_ context.Context) ([]string, error) {
	if m.namesErr != nil {
		return nil, m.namesErr
	}
	names := make([]string, 0, len(m.docs))
	for n := range m.docs {
		names = append(names, n)
	}
	slices.Sort(names)
	return names, nil
}

func (m *mockStore) Exists(_ context.Context, name string) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	_, ok := m.docs[name]
	return ok, nil
}

func (m *mockStore) Put(_ context.Context, name string, content []byte, meta domdoc.Metadata) error {
	m.puts = append(m.puts, name)
	if err := m.putErr[name]; err != nil {
		return err
	}
	m.docs[name] = stored{content: content, meta: meta}
	return nil
}

func (m *mockStore) Delete(_ context.Context, name string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.docs[name]; !ok {
		return domain.ErrDocumentNotFound
	}
	delete(m.docs, name)
	return nil
}

type mockIndex struct {
	records map[string]int
	err     error
	deleted []string
}

func (m *mockIndex) DeleteBySourceFile(_ context.Context, sourceFile string) (int, error) {
	m.deleted = append(m.deleted, sourceFile)
	if m.err != nil {
		return 0, m.err
	}
	n := m.records[sourceFile]
	delete(m.records, sourceFile)
	return n, nil
}

func newService(store *mockStore, index *mockIndex) *Service {
	return New(store, index, nil)
}

// --- Upload ---

func TestUpload_StoresWithDefaultMetadata(t *testing.T) {
	store := newMockStore()
	svc := newService(store, &mockIndex{})

	results := svc.Upload(context.Background(), []File{
		{Name: "Benefit_Options.pdf", Content: []byte("%PDF-1.4")},
		{Name: "handbook.txt", Content: []byte("welcome")},
	}, UploadOptions{Permissions: []string{"hr", " hr", "finance"}})

	ok, skipped, failed := dombatch.Counts(results)
	if ok != 2 || skipped != 0 || failed != 0 {
		t.Fatalf("counts = %d/%d/%d, want 2/0/0", ok, skipped, failed)
	}

	meta := store.docs["Benefit_Options.pdf"].meta
	if meta.Status != domdoc.NotProcessed {
		t.Errorf("status = %q, want NotProcessed", meta.Status)
	}
	if meta.EmbeddingType != domdoc.EmbeddingNone {
		t.Errorf("embedding type = %q, want None", meta.EmbeddingType)
	}
	if !slices.Equal(meta.Permissions, []string{"hr", "finance"}) {
		t.Errorf("permissions = %v", meta.Permissions)
	}
}

func TestUpload_SkipsExisting(t *testing.T) {
	store := newMockStore()
	store.docs["plan.pdf"] = stored{content: []byte("old")}
	svc := newService(store, &mockIndex{})

	results := svc.Upload(context.Background(), []File{{Name: "plan.pdf", Content: []byte("new")}}, UploadOptions{})

	if results[0].Status() != dombatch.StatusSkipped {
		t.Fatalf("status = %q, want skipped", results[0].Status())
	}
	if string(store.docs["plan.pdf"].content) != "old" {
		t.Error("existing document must not be overwritten")
	}
}

func TestUpload_Overwrite(t *testing.T) {
	store := newMockStore()
	store.docs["plan.pdf"] = stored{content: []byte("old")}
	svc := newService(store, &mockIndex{})

	results := svc.Upload(context.Background(), []File{{Name: "plan.pdf", Content: []byte("new")}},
		UploadOptions{Overwrite: true, Permissions: []string{"hr"}})

	if results[0].Status() != dombatch.StatusOK {
		t.Fatalf("status = %q, want ok", results[0].Status())
	}
	if string(store.docs["plan.pdf"].content) != "new" {
		t.Error("expected content replaced")
	}
	if !slices.Equal(store.docs["plan.pdf"].meta.Permissions, []string{"hr"}) {
		t.Error("expected permissions replaced")
	}
}

func TestUpload_PerFileErrors(t *testing.T) {
	store := newMockStore()
	store.putErr["broken.pdf"] = errors.New("SET: OOM")
	svc := newService(store, &mockIndex{})

	results := svc.Upload(context.Background(), []File{
		{Name: "../escape.pdf"},
		{Name: "broken.pdf"},
		{Name: "fine.pdf"},
	}, UploadOptions{})

	if !errors.Is(results[0].Err(), domain.ErrInvalidInput) {
		t.Errorf("invalid name: err = %v", results[0].Err())
	}
	if results[1].Status() != dombatch.StatusError {
		t.Errorf("put failure: status = %q", results[1].Status())
	}
	if results[2].Status() != dombatch.StatusOK {
		t.Errorf("later files continue: status = %q", results[2].Status())
	}
	if slices.Contains(store.puts, "../escape.pdf") {
		t.Error("invalid name must not reach the store")
	}
}

func TestUpload_ExistsError(t *testing.T) {
	store := newMockStore()
	store.existsErr = errors.New("EXISTS: timeout")
	svc := newService(store, &mockIndex{})

	results := svc.Upload(context.Background(), []File{{Name: "a.pdf"}}, UploadOptions{})
	if results[0].Status() != dombatch.StatusError {
		t.Fatalf("status = %q, want error", results[0].Status())
	}
	if len(store.puts) != 0 {
		t.Error("put must not run after a failed existence check")
	}
}

func TestUpload_TooManyFiles(t *testing.T) {
	store := newMockStore()
	svc := newService(store, &mockIndex{}).WithMaxUploadFiles(2)

	results := svc.Upload(context.Background(), []File{{Name: "a"}, {Name: "b"}, {Name: "c"}}, UploadOptions{})
	for _, r := range results {
		if !errors.Is(r.Err(), domain.ErrInvalidInput) {
			t.Errorf("%s: err = %v", r.Name(), r.Err())
		}
	}
	if len(store.puts) != 0 {
		t.Error("nothing stored")
	}
}

// --- Listing ---

func TestGetDocuments_Lazy(t *testing.T) {
	store := newMockStore()
	for _, n := range []string{"c.pdf", "a.pdf", "b.pdf"} {
		store.docs[n] = stored{meta: domdoc.DefaultMetadata(nil)}
	}
	svc := newService(store, &mockIndex{})

	var seen []string
	for d, err := range svc.GetDocuments(context.Background()) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		seen = append(seen, d.Name())
		if len(seen) == 2 {
			break
		}
	}
	if !slices.Equal(seen, []string{"a.pdf", "b.pdf"}) {
		t.Errorf("seen = %v", seen)
	}
}

func TestList(t *testing.T) {
	store := newMockStore()
	store.docs["a.pdf"] = stored{}
	svc := newService(store, &mockIndex{})

	docs, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 1 || docs[0].URL() != "https://files/a.pdf" {
		t.Errorf("docs = %+v", docs)
	}

	store.namesErr = errors.New("SCAN: timeout")
	if _, err := svc.List(context.Background()); err == nil {
		t.Error("expected list error")
	}
}

func TestGet_NotFound(t *testing.T) {
	svc := newService(newMockStore(), &mockIndex{})
	if _, err := svc.Get(context.Background(), "nope.pdf"); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Errorf("err = %v, want ErrDocumentNotFound", err)
	}
}

// --- Remove ---

func TestRemove_DeletesBlobAndRecords(t *testing.T) {
	store := newMockStore()
	store.docs["plan.pdf"] = stored{}
	index := &mockIndex{records: map[string]int{"plan.pdf": 5}}
	svc := newService(store, index)

	n, err := svc.Remove(context.Background(), "plan.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 5 {
		t.Errorf("removed = %d, want 5", n)
	}
	if _, ok := store.docs["plan.pdf"]; ok {
		t.Error("blob not deleted")
	}
}

func TestRemove_NotFound(t *testing.T) {
	index := &mockIndex{}
	svc := newService(newMockStore(), index)

	_, err := svc.Remove(context.Background(), "missing.pdf")
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Errorf("err = %v", err)
	}
	if len(index.deleted) != 0 {
		t.Error("records untouched when the blob is missing")
	}
}

func TestRemove_IndexError(t *testing.T) {
	store := newMockStore()
	store.docs["plan.pdf"] = stored{}
	svc := newService(store, &mockIndex{err: errors.New("FT.SEARCH: timeout")})

	if _, err := svc.Remove(context.Background(), "plan.pdf"); err == nil {
		t.Error("expected error")
	}
}

func TestRemoveAll(t *testing.T) {
	store := newMockStore()
	store.docs["a.pdf"] = stored{}
	store.docs["b.pdf"] = stored{}
	index := &mockIndex{records: map[string]int{"a.pdf": 2, "b.pdf": 3}}
	svc := newService(store, index)

	results, err := svc.RemoveAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ok, _, failed := dombatch.Counts(results)
	if ok != 2 || failed != 0 {
		t.Errorf("ok=%d failed=%d", ok, failed)
	}
	if len(store.docs) != 0 || len(index.records) != 0 {
		t.Error("corpus and index should be empty")
	}
}

func TestRemoveAll_ListError(t *testing.T) {
	store := newMockStore()
	store.namesErr = errors.New("SCAN: timeout")
	if _, err := newService(store, &mockIndex{}).RemoveAll(context.Background()); err == nil {
		t.Error("expected error")
	}
}
