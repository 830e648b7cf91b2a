package app

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/postcache/internal/record"
	"github.com/roach88/postcache/internal/remote"
	"github.com/roach88/postcache/internal/render"
	"github.com/roach88/postcache/internal/store"
	"github.com/roach88/postcache/internal/testutil"
)

const twoPosts = `[{"id":1,"title":"a"},{"id":2,"title":"b"}]`

func storeOptions(t *testing.T) store.Options {
	t.Helper()
	return store.Options{
		Dir:     t.TempDir(),
		Name:    store.DefaultName,
		Version: store.DefaultVersion,
		Logger:  testutil.DiscardLogger(),
	}
}

func httpProvider(t *testing.T, url string) *remote.HTTPProvider {
	t.Helper()
	p, err := remote.NewHTTPProvider(remote.Options{Endpoint: url, Logger: testutil.DiscardLogger()})
	require.NoError(t, err)
	return p
}

func newOrchestrator(t *testing.T, p remote.Provider, opts store.Options, d Display) *Orchestrator {
	t.Helper()
	o, err := New(Config{
		Provider: p,
		Store:    opts,
		Display:  d,
		Logger:   testutil.DiscardLogger(),
		Flows:    testutil.NewFixedFlowGenerator("flow-test"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { o.Close() })
	return o
}

func readStored(t *testing.T, opts store.Options) []record.Record {
	t.Helper()
	h, err := store.Open(context.Background(), opts)
	require.NoError(t, err)
	defer h.Close()
	records, err := h.ReadAll(context.Background())
	require.NoError(t, err)
	return records
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Display: render.NewMemory()})
	assert.Error(t, err)

	_, err = New(Config{Provider: testutil.NewStaticProvider()})
	assert.Error(t, err)

	o, err := New(Config{Provider: testutil.NewStaticProvider(), Display: render.NewMemory()})
	require.NoError(t, err)
	assert.Equal(t, StateIdle, o.State())
}

func TestLoad_RendersAndPersists(t *testing.T) {
	srv := testutil.NewServer(t, http.StatusOK, twoPosts)
	opts := storeOptions(t)
	display := render.NewMemory()
	o := newOrchestrator(t, httpProvider(t, srv.URL), opts, display)

	require.NoError(t, o.Load(context.Background()))

	assert.Equal(t, []string{"ID: 1 - Título: a", "ID: 2 - Título: b"}, display.Items())
	code, _ := display.Error()
	assert.Empty(t, code)
	assert.Equal(t, StatePopulated, o.State())

	require.NoError(t, o.Wait())
	require.NoError(t, o.Close())

	stored := readStored(t, opts)
	require.Len(t, stored, 2)
	assert.Equal(t, "a", stored[0].Title())
	assert.Equal(t, "b", stored[1].Title())
}

func TestLoad_HTTPFailureLeavesStoreUntouched(t *testing.T) {
	srv := testutil.NewServer(t, http.StatusInternalServerError, `oops`)
	opts := storeOptions(t)
	display := render.NewMemory()
	o := newOrchestrator(t, httpProvider(t, srv.URL), opts, display)

	err := o.Load(context.Background())
	require.Error(t, err)
	assert.True(t, remote.IsFetchError(err))

	code, message := display.Error()
	assert.Equal(t, CodeFetch, code)
	assert.Contains(t, message, "Error")
	assert.Contains(t, message, "HTTP 500")
	assert.Empty(t, display.Items())
	assert.Equal(t, StateFailed, o.State())

	require.NoError(t, o.Close())
	assert.Empty(t, readStored(t, opts))
}

func TestLoad_FailureKeepsPreviousData(t *testing.T) {
	srv := testutil.NewServer(t, http.StatusOK, twoPosts)
	opts := storeOptions(t)
	o := newOrchestrator(t, httpProvider(t, srv.URL), opts, render.NewMemory())
	require.NoError(t, o.Load(context.Background()))
	require.NoError(t, o.Close())

	failing := testutil.NewFailingProvider(&remote.FetchError{URL: "x", Status: http.StatusBadGateway})
	display := render.NewMemory()
	o2 := newOrchestrator(t, failing, opts, display)
	require.Error(t, o2.Load(context.Background()))
	require.NoError(t, o2.Close())

	assert.Len(t, readStored(t, opts), 2)
}

func TestLoad_ParseFailure(t *testing.T) {
	srv := testutil.NewServer(t, http.StatusOK, `{"not":"an array"}`)
	display := render.NewMemory()
	o := newOrchestrator(t, httpProvider(t, srv.URL), storeOptions(t), display)

	err := o.Load(context.Background())
	require.Error(t, err)
	assert.True(t, remote.IsParseError(err))

	code, message := display.Error()
	assert.Equal(t, CodeParse, code)
	assert.Contains(t, message, "Error al procesar los datos")
	assert.Empty(t, display.Items())
	assert.Equal(t, StateFailed, o.State())
}

func TestLoad_TransportFailure(t *testing.T) {
	display := render.NewMemory()
	p := testutil.NewFailingProvider(&remote.FetchError{URL: "x", Err: errors.New("connection refused")})
	o := newOrchestrator(t, p, storeOptions(t), display)

	require.Error(t, o.Load(context.Background()))

	code, message := display.Error()
	assert.Equal(t, CodeFetch, code)
	assert.Equal(t, "Ocurrió un error: Error al obtener los datos: connection refused", message)
}

func TestLoad_EmptyArray(t *testing.T) {
	opts := storeOptions(t)
	display := render.NewMemory()
	o := newOrchestrator(t, testutil.NewStaticProvider(), opts, display)

	require.NoError(t, o.Load(context.Background()))
	assert.Empty(t, display.Items())
	assert.Equal(t, 1, display.Renders())
	assert.Equal(t, StatePopulated, o.State())
	require.NoError(t, o.Close())

	assert.Empty(t, readStored(t, opts))
}

func TestLoad_PersistFailureIsNotShown(t *testing.T) {
	opts := storeOptions(t)
	opts.Dir = "/nonexistent/dir"
	display := render.NewMemory()
	p := testutil.NewStaticProvider(record.MustNew(map[string]any{"id": 1, "title": "a"}))
	o := newOrchestrator(t, p, opts, display)

	require.NoError(t, o.Load(context.Background()))
	assert.Equal(t, []string{"ID: 1 - Título: a"}, display.Items())
	code, _ := display.Error()
	assert.Empty(t, code)

	err := o.Wait()
	require.Error(t, err)
	var openErr *store.StoreOpenError
	assert.ErrorAs(t, err, &openErr)

	// Wait drains the collected failures.
	assert.NoError(t, o.Wait())
}

func TestLoad_CanceledAfterFetchStillPersists(t *testing.T) {
	opts := storeOptions(t)
	ctx, cancel := context.WithCancel(context.Background())
	p := &cancelingProvider{
		StaticProvider: testutil.NewStaticProvider(record.MustNew(map[string]any{"id": 7, "title": "t"})),
		cancel:         cancel,
	}
	o := newOrchestrator(t, p, opts, render.NewMemory())

	require.NoError(t, o.Load(ctx))
	require.NoError(t, o.Close())

	stored := readStored(t, opts)
	require.Len(t, stored, 1)
	assert.Equal(t, "t", stored[0].Title())
}

// cancelingProvider cancels the caller's context once the fetch returns.
type cancelingProvider struct {
	*testutil.StaticProvider
	cancel context.CancelFunc
}

func (p *cancelingProvider) Fetch(ctx context.Context) ([]record.Record, error) {
	records, err := p.StaticProvider.Fetch(ctx)
	p.cancel()
	return records, err
}

func TestLoad_ReplacesByID(t *testing.T) {
	opts := storeOptions(t)
	p := testutil.NewStaticProvider(
		record.MustNew(map[string]any{"id": 1, "title": "old"}),
		record.MustNew(map[string]any{"id": 2, "title": "keep"}),
	)
	o := newOrchestrator(t, p, opts, render.NewMemory())
	require.NoError(t, o.Load(context.Background()))
	require.NoError(t, o.Wait())

	p.Set([]record.Record{record.MustNew(map[string]any{"id": 1, "title": "new"})}, nil)
	require.NoError(t, o.Load(context.Background()))
	require.NoError(t, o.Close())

	stored := readStored(t, opts)
	require.Len(t, stored, 2)
	assert.Equal(t, "new", stored[0].Title())
	assert.Equal(t, "keep", stored[1].Title())
}

func TestViewStored_ShowsStoredRecords(t *testing.T) {
	srv := testutil.NewServer(t, http.StatusOK, twoPosts)
	opts := storeOptions(t)
	o := newOrchestrator(t, httpProvider(t, srv.URL), opts, render.NewMemory())
	require.NoError(t, o.Load(context.Background()))
	require.NoError(t, o.Close())

	display := render.NewMemory()
	o2 := newOrchestrator(t, httpProvider(t, srv.URL), opts, display)
	require.NoError(t, o2.ViewStored(context.Background()))

	assert.Equal(t, []string{"ID: 1 - Título: a", "ID: 2 - Título: b"}, display.Items())
	assert.Equal(t, 1, srv.Hits(), "view must not touch the network")
	assert.Equal(t, StateIdle, o2.State())
}

func TestViewStored_EmptyShowsPlaceholder(t *testing.T) {
	display := render.NewMemory()
	o := newOrchestrator(t, testutil.NewStaticProvider(), storeOptions(t), display)

	require.NoError(t, o.ViewStored(context.Background()))

	assert.Equal(t, "No hay datos almacenados.", display.Text())
	assert.Empty(t, display.Items())
}

func TestViewStored_OpenFailure(t *testing.T) {
	opts := storeOptions(t)
	opts.Dir = "/nonexistent/dir"
	display := render.NewMemory()
	o := newOrchestrator(t, testutil.NewStaticProvider(), opts, display)

	err := o.ViewStored(context.Background())
	require.Error(t, err)

	code, message := display.Error()
	assert.Equal(t, CodeStoreOpen, code)
	assert.Equal(t, "Error al abrir la base de datos.", message)
	assert.Equal(t, 0, display.Renders())
}

func TestViewStored_OpenFailureIsRetried(t *testing.T) {
	opts := storeOptions(t)
	opts.Version = 2
	h, err := store.Open(context.Background(), opts)
	require.NoError(t, err)
	require.NoError(t, h.Close())

	opts.Version = 1
	display := render.NewMemory()
	o := newOrchestrator(t, testutil.NewStaticProvider(), opts, display)

	err = o.ViewStored(context.Background())
	require.Error(t, err)
	assert.True(t, store.IsVersionDowngrade(err))

	err = o.ViewStored(context.Background())
	assert.True(t, store.IsVersionDowngrade(err), "failed opens are not cached")
}

func TestViewStored_ReadFailure(t *testing.T) {
	opts := storeOptions(t)
	o := newOrchestrator(t, testutil.NewStaticProvider(), opts, render.NewMemory())
	h, err := o.openStore(context.Background())
	require.NoError(t, err)
	require.NoError(t, h.Close())

	display := render.NewMemory()
	o.display = display
	err = o.ViewStored(context.Background())
	require.Error(t, err)

	code, message := display.Error()
	assert.Equal(t, CodeRead, code)
	assert.Equal(t, "Error al leer datos almacenados.", message)
	assert.Empty(t, display.Items())
}

func TestViewStored_ClearsPreviousError(t *testing.T) {
	display := render.NewMemory()
	o := newOrchestrator(t, testutil.NewFailingProvider(&remote.FetchError{URL: "x", Status: 500}), storeOptions(t), display)

	require.Error(t, o.Load(context.Background()))
	code, _ := display.Error()
	require.Equal(t, CodeFetch, code)

	require.NoError(t, o.ViewStored(context.Background()))
	code, _ = display.Error()
	assert.Empty(t, code)
	assert.Equal(t, render.Placeholder, display.Text())
}

func TestLoad_ConcurrentWithWait(t *testing.T) {
	ctx := context.Background()
	opts := storeOptions(t)
	p := testutil.NewStaticProvider(record.MustNew(map[string]any{"id": 1, "title": "a"}))
	o := newOrchestrator(t, p, opts, render.NewMemory())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, o.Load(ctx))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, o.Wait())
		}()
	}
	wg.Wait()

	require.NoError(t, o.Close())
	stored := readStored(t, opts)
	require.Len(t, stored, 1)
	assert.Equal(t, "a", stored[0].Title())
}

func TestClose_ConcurrentWithLoad(t *testing.T) {
	ctx := context.Background()
	p := testutil.NewStaticProvider(record.MustNew(map[string]any{"id": 1, "title": "a"}))
	o := newOrchestrator(t, p, storeOptions(t), render.NewMemory())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, o.Load(ctx))
		}()
	}
	closeErr := make(chan error, 1)
	go func() { closeErr <- o.Close() }()
	wg.Wait()

	// Writes issued before Close commit; later ones are refused, never
	// cut off by the store closing underneath them.
	assert.NoError(t, <-closeErr)
	err := o.Wait()
	if err == nil {
		return
	}
	joined, ok := err.(interface{ Unwrap() []error })
	require.True(t, ok, "got %T: %v", err, err)
	for _, e := range joined.Unwrap() {
		assert.Equal(t, ErrClosed, e)
	}
}

func TestClose_LaterActionsFail(t *testing.T) {
	ctx := context.Background()
	display := render.NewMemory()
	p := testutil.NewStaticProvider(record.MustNew(map[string]any{"id": 1, "title": "a"}))
	o := newOrchestrator(t, p, storeOptions(t), display)
	require.NoError(t, o.ViewStored(ctx))
	require.NoError(t, o.Close())

	require.NoError(t, o.Load(ctx))
	assert.Equal(t, []string{"ID: 1 - Título: a"}, display.Items())
	assert.ErrorIs(t, o.Wait(), ErrClosed)

	err := o.ViewStored(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	code, _ := display.Error()
	assert.Equal(t, CodeStoreOpen, code)

	assert.NoError(t, o.Close())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "fetching", StateFetching.String())
	assert.Equal(t, "populated", StatePopulated.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "unknown", State(99).String())
}

func TestUUIDv7Generator(t *testing.T) {
	g := UUIDv7Generator{}
	a, b := g.Generate(), g.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
