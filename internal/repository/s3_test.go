package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/debemdeboas/redux-content/internal/model"
	"github.com/debemdeboas/redux-content/internal/util"
	"github.com/debemdeboas/redux-content/internal/util/compression"
)

const testBucket = "pages"

// fakeS3 serves the path-style subset of the S3 API the object store uses:
// GetObject, conditional PutObject and ListObjectsV2.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte

	// putError, when set, answers the next PutObject with this status and code.
	putStatus int
	putCode   string
}

func newFakeS3(t *testing.T) (*fakeS3, *S3ObjectStore) {
	t.Helper()

	fake := &fakeS3{objects: make(map[string][]byte)}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	store, err := NewS3ObjectStore(context.Background(), S3Options{
		Bucket:          testBucket,
		Endpoint:        srv.URL,
		Region:          "us-east-1",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
	})
	require.NoError(t, err)
	return fake, store
}

func (f *fakeS3) failNextPut(status int, code string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.putStatus, f.putCode = status, code
}

func etagOf(data []byte) string {
	return `"` + util.ContentHash(data) + `"`
}

func writeS3Error(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>%s</Code><Message>%s</Message></Error>`, code, code)
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/"+testBucket)
	key := strings.TrimPrefix(path, "/")

	switch {
	case r.Method == http.MethodGet && key == "" && r.URL.Query().Get("list-type") == "2":
		f.list(w, r.URL.Query().Get("prefix"))

	case r.Method == http.MethodGet:
		data, ok := f.objects[key]
		if !ok {
			writeS3Error(w, http.StatusNotFound, "NoSuchKey")
			return
		}
		w.Header().Set("ETag", etagOf(data))
		w.Header().Set("Content-Length", fmt.Sprint(len(data)))
		w.Write(data)

	case r.Method == http.MethodPut:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeS3Error(w, http.StatusBadRequest, "IncompleteBody")
			return
		}

		if f.putCode != "" {
			status, code := f.putStatus, f.putCode
			f.putStatus, f.putCode = 0, ""
			writeS3Error(w, status, code)
			return
		}

		current, exists := f.objects[key]
		if r.Header.Get("If-None-Match") == "*" && exists {
			writeS3Error(w, http.StatusPreconditionFailed, "PreconditionFailed")
			return
		}
		if match := r.Header.Get("If-Match"); match != "" && (!exists || match != etagOf(current)) {
			writeS3Error(w, http.StatusPreconditionFailed, "PreconditionFailed")
			return
		}

		f.objects[key] = body
		w.Header().Set("ETag", etagOf(body))
		w.WriteHeader(http.StatusOK)

	default:
		writeS3Error(w, http.StatusMethodNotAllowed, "MethodNotAllowed")
	}
}

func (f *fakeS3) list(w http.ResponseWriter, prefix string) {
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">`)
	fmt.Fprintf(&b, `<Name>%s</Name><Prefix>%s</Prefix><KeyCount>%d</KeyCount><MaxKeys>1000</MaxKeys><IsTruncated>false</IsTruncated>`, testBucket, prefix, len(keys))
	for _, k := range keys {
		fmt.Fprintf(&b, `<Contents><Key>%s</Key><Size>%d</Size></Contents>`, k, len(f.objects[k]))
	}
	b.WriteString(`</ListBucketResult>`)

	w.Header().Set("Content-Type", "application/xml")
	w.Write([]byte(b.String()))
}

func TestIsPreconditionFailure(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"precondition failed", &smithy.GenericAPIError{Code: "PreconditionFailed"}, true},
		{"conditional request conflict", &smithy.GenericAPIError{Code: "ConditionalRequestConflict"}, true},
		{"wrapped", fmt.Errorf("put: %w", &smithy.GenericAPIError{Code: "PreconditionFailed"}), true},
		{"other api error", &smithy.GenericAPIError{Code: "AccessDenied"}, false},
		{"not an api error", errors.New("connection reset"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, isPreconditionFailure(tc.err))
		})
	}
}

func TestS3ObjectStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Missing key is not found", func(t *testing.T) {
		_, store := newFakeS3(t)

		_, err := store.Get(ctx, "pages/home.log")
		assert.ErrorIs(t, err, ErrObjectNotFound)
	})

	t.Run("Conditional puts", func(t *testing.T) {
		_, store := newFakeS3(t)

		etag, err := store.Put(ctx, "pages/home.log", []byte("v1"), "")
		require.NoError(t, err)
		require.NotEmpty(t, etag)

		_, err = store.Put(ctx, "pages/home.log", []byte("again"), "")
		assert.ErrorIs(t, err, ErrPreconditionFailed)

		_, err = store.Put(ctx, "pages/home.log", []byte("stale"), `"not-the-etag"`)
		assert.ErrorIs(t, err, ErrPreconditionFailed)

		_, err = store.Put(ctx, "pages/home.log", []byte("v2"), etag)
		require.NoError(t, err)

		obj, err := store.Get(ctx, "pages/home.log")
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), obj.Data)
		assert.Equal(t, etagOf([]byte("v2")), obj.ETag)
	})

	t.Run("Conditional request conflict is a failed precondition", func(t *testing.T) {
		fake, store := newFakeS3(t)
		fake.failNextPut(http.StatusConflict, "ConditionalRequestConflict")

		_, err := store.Put(ctx, "pages/home.log", []byte("v1"), "")
		assert.ErrorIs(t, err, ErrPreconditionFailed)
	})

	t.Run("Other errors pass through", func(t *testing.T) {
		fake, store := newFakeS3(t)
		fake.failNextPut(http.StatusForbidden, "AccessDenied")

		_, err := store.Put(ctx, "pages/home.log", []byte("v1"), "")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrPreconditionFailed)
	})

	t.Run("List by prefix", func(t *testing.T) {
		_, store := newFakeS3(t)
		for _, key := range []string{"pages/about.log", "pages/home.log", "other/x.log"} {
			_, err := store.Put(ctx, key, []byte(key), "")
			require.NoError(t, err)
		}

		keys, err := store.List(ctx, "pages/")
		require.NoError(t, err)
		assert.Equal(t, []string{"pages/about.log", "pages/home.log"}, keys)
	})
}

func TestLogRepositoryOnS3(t *testing.T) {
	ctx := context.Background()
	fake, store := newFakeS3(t)
	repo := NewLogRepository(store, "pages/", compression.ZstdCompressor{})

	_, err := repo.Append(ctx, "home", title("REDUX"), "ana", "", true)
	require.NoError(t, err)
	v2, err := repo.Append(ctx, "home", title("REDUX 2.0"), "bo", "", true)
	require.NoError(t, err)
	assert.Equal(t, 2, v2.Version)

	published, err := repo.Latest(ctx, "home", LatestOptions{PublishedOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 2, published.Version)

	ids, err := repo.PageIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"home"}, ids)

	t.Run("Lost race is a version conflict", func(t *testing.T) {
		fake.failNextPut(http.StatusPreconditionFailed, "PreconditionFailed")

		_, err := repo.Append(ctx, "home", title("late"), "cy", "", false)
		assert.ErrorIs(t, err, model.ErrConcurrentVersionConflict)

		history, err := repo.History(ctx, "home")
		require.NoError(t, err)
		assert.Len(t, history, 2)
	})
}
