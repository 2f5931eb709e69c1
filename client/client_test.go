package client

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/meridiankv/meridian-go/core/common"
	"github.com/meridiankv/meridian-go/core/serializer"
	"github.com/meridiankv/meridian-go/core/server"
	"github.com/meridiankv/meridian-go/core/transport/tcp"
)

// startServer runs an in-process development server on a random port and
// returns its address.
func startServer(t *testing.T) string {
	t.Helper()

	srv := server.New(
		common.DefaultServerConfig("127.0.0.1:0"),
		tcp.NewListener(),
		serializer.NewBinarySerializer(),
	)
	if err := srv.Listen(); err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	go srv.Serve()
	t.Cleanup(func() { srv.Close() })

	return srv.Addr()
}

func connectCluster(t *testing.T, endpoints ...string) *Cluster {
	t.Helper()

	conf := common.DefaultClientConfig(endpoints...)
	conf.TimeoutSecond = 5

	cluster, err := Connect(conf)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() { cluster.Close() })
	return cluster
}

func TestConnectNoEndpoint(t *testing.T) {
	if _, err := Connect(common.DefaultClientConfig()); err == nil {
		t.Error("expected Connect without endpoints to fail")
	}

	if _, err := Connect(common.DefaultClientConfig("127.0.0.1:1")); !errors.Is(err, ErrConnectivity) {
		t.Errorf("expected ErrConnectivity for unreachable endpoint, got %v", err)
	}
}

func TestCollectionCRUD(t *testing.T) {
	cluster := connectCluster(t, startServer(t))
	col := cluster.Bucket("travel").DefaultCollection()

	// Upsert and Get
	mut, err := col.Upsert("hotel::1", []byte(`{"name":"Sea View"}`), nil)
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if mut.Cas() == 0 {
		t.Error("expected non-zero cas after Upsert")
	}

	res, err := col.Get("hotel::1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.Equal(res.Bytes(), []byte(`{"name":"Sea View"}`)) {
		t.Errorf("unexpected content: %s", res.Bytes())
	}
	if res.Cas() != mut.Cas() {
		t.Errorf("Get cas %d does not match Upsert cas %d", res.Cas(), mut.Cas())
	}

	// ContentAs decodes JSON documents
	var doc struct {
		Name string `json:"name"`
	}
	if err := res.ContentAs(&doc); err != nil {
		t.Fatalf("ContentAs failed: %v", err)
	}
	if doc.Name != "Sea View" {
		t.Errorf("expected name %q, got %q", "Sea View", doc.Name)
	}

	// Exists
	ex, err := col.Exists("hotel::1")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !ex.Exists() || ex.Cas() != mut.Cas() {
		t.Errorf("Exists() = (%v, %d), want (true, %d)", ex.Exists(), ex.Cas(), mut.Cas())
	}

	// Remove and verify
	if err := col.Remove("hotel::1", nil); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := col.Get("hotel::1"); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound after Remove, got %v", err)
	}
}

func TestCollectionStructContent(t *testing.T) {
	cluster := connectCluster(t, startServer(t))
	col := cluster.Bucket("travel").DefaultCollection()

	type airline struct {
		Name     string `json:"name"`
		Callsign string `json:"callsign"`
	}

	if _, err := col.Upsert("airline::1", airline{Name: "Sample Air", Callsign: "SMPL"}, nil); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	res, err := col.Get("airline::1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	var got airline
	if err := res.ContentAs(&got); err != nil {
		t.Fatalf("ContentAs failed: %v", err)
	}
	if got.Name != "Sample Air" || got.Callsign != "SMPL" {
		t.Errorf("unexpected document: %+v", got)
	}
}

func TestCollectionInsert(t *testing.T) {
	cluster := connectCluster(t, startServer(t))
	col := cluster.Bucket("travel").DefaultCollection()

	if _, err := col.Insert("hotel::1", []byte("v1"), nil); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if _, err := col.Insert("hotel::1", []byte("v2"), nil); !errors.Is(err, ErrDocumentExists) {
		t.Errorf("expected ErrDocumentExists, got %v", err)
	}
}

func TestCollectionReplaceWithCas(t *testing.T) {
	cluster := connectCluster(t, startServer(t))
	col := cluster.Bucket("travel").DefaultCollection()

	if _, err := col.Replace("hotel::1", []byte("v"), nil); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}

	mut, err := col.Upsert("hotel::1", []byte("v1"), nil)
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	// Stale token is rejected
	if _, err := col.Replace("hotel::1", []byte("v2"), &ReplaceOptions{Cas: mut.Cas() + 1}); !errors.Is(err, ErrCasMismatch) {
		t.Errorf("expected ErrCasMismatch, got %v", err)
	}

	// Matching token succeeds
	mut2, err := col.Replace("hotel::1", []byte("v2"), &ReplaceOptions{Cas: mut.Cas()})
	if err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	if mut2.Cas() == mut.Cas() {
		t.Error("expected Replace to assign a new cas")
	}

	res, _ := col.Get("hotel::1")
	if !bytes.Equal(res.Bytes(), []byte("v2")) {
		t.Errorf("unexpected content after Replace: %s", res.Bytes())
	}
}

func TestCollectionTouch(t *testing.T) {
	cluster := connectCluster(t, startServer(t))
	col := cluster.Bucket("travel").DefaultCollection()

	if err := col.Touch("hotel::1", time.Hour); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}

	mut, _ := col.Upsert("hotel::1", []byte("v"), &UpsertOptions{ExpireIn: time.Hour})
	if err := col.Touch("hotel::1", 2*time.Hour); err != nil {
		t.Fatalf("Touch failed: %v", err)
	}

	// Touch must not change the cas
	res, err := col.Get("hotel::1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if res.Cas() != mut.Cas() {
		t.Errorf("Touch changed cas from %d to %d", mut.Cas(), res.Cas())
	}
}

func TestClusterQuery(t *testing.T) {
	cluster := connectCluster(t, startServer(t))
	col := cluster.Bucket("travel").DefaultCollection()

	for _, key := range []string{"hotel::1", "hotel::2", "airline::1"} {
		if _, err := col.Upsert(key, []byte(key), nil); err != nil {
			t.Fatalf("Upsert %s failed: %v", key, err)
		}
	}

	res, err := cluster.Query("hotel::", &QueryOptions{Bucket: "travel"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(res.Rows()) != 2 {
		t.Errorf("expected 2 rows, got %d", len(res.Rows()))
	}
}

func TestClusterPing(t *testing.T) {
	cluster := connectCluster(t, startServer(t))
	if err := cluster.Ping(); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestClusterMultiEndpointRouting(t *testing.T) {
	cluster := connectCluster(t, startServer(t), startServer(t))
	col := cluster.Bucket("travel").DefaultCollection()

	// Keys spread across both endpoints and must all be readable again
	keys := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}
	for _, key := range keys {
		if _, err := col.Upsert(key, []byte("v:"+key), nil); err != nil {
			t.Fatalf("Upsert %s failed: %v", key, err)
		}
	}
	for _, key := range keys {
		res, err := col.Get(key)
		if err != nil {
			t.Fatalf("Get %s failed: %v", key, err)
		}
		if string(res.Bytes()) != "v:"+key {
			t.Errorf("key %s: unexpected content %s", key, res.Bytes())
		}
	}

	// Query fans out to all endpoints
	res, err := cluster.Query("", &QueryOptions{Bucket: "travel"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(res.Rows()) != len(keys) {
		t.Errorf("expected %d rows, got %d", len(keys), len(res.Rows()))
	}
}

func TestClusterConcurrentOperations(t *testing.T) {
	cluster := connectCluster(t, startServer(t))
	col := cluster.Bucket("travel").DefaultCollection()

	var wg sync.WaitGroup
	errCh := make(chan error, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := string(rune('a' + n%26))
			if _, err := col.Upsert(key, []byte("v"), nil); err != nil {
				errCh <- err
			}
		}(i)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		t.Errorf("concurrent Upsert failed: %v", err)
	}
}

func TestClusterClosed(t *testing.T) {
	cluster := connectCluster(t, startServer(t))
	col := cluster.Bucket("travel").DefaultCollection()

	cluster.Close()

	if _, err := col.Get("k"); !errors.Is(err, ErrClusterClosed) {
		t.Errorf("expected ErrClusterClosed, got %v", err)
	}
	if err := cluster.Ping(); !errors.Is(err, ErrClusterClosed) {
		t.Errorf("expected ErrClusterClosed from Ping, got %v", err)
	}
	if _, err := cluster.Query("", nil); !errors.Is(err, ErrClusterClosed) {
		t.Errorf("expected ErrClusterClosed from Query, got %v", err)
	}

	// Closing again is a no-op
	if err := cluster.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}
