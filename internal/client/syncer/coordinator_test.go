package syncer

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/atinyakov/GophTally/internal/errors"
	"github.com/atinyakov/GophTally/internal/models"
)

type memLocal struct {
	mu       sync.Mutex
	counters []models.Counter
	labels   []models.Label
	saves    int
}

func (m *memLocal) LoadCounters() []models.Counter {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneCounters(m.counters)
}

func (m *memLocal) SaveCounters(items []models.Counter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = cloneCounters(items)
	m.saves++
}

func (m *memLocal) LoadLabels() []models.Label {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Label{}, m.labels...)
}

func (m *memLocal) SaveLabels(items []models.Label) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.labels = append([]models.Label{}, items...)
}

type fakeRemote struct {
	mu      sync.Mutex
	calls   []string
	err     error
	streams map[string]chan models.Snapshot
	cleared int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{streams: make(map[string]chan models.Snapshot)}
}

func (f *fakeRemote) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeRemote) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeRemote) CreateCounter(_ context.Context, c models.Counter) (string, error) {
	return "srv", f.record("create-counter " + c.Name)
}

func (f *fakeRemote) UpdateCounter(_ context.Context, id string, p models.CounterPatch) error {
	desc := "update " + id
	if p.Count != nil {
		desc += " count"
	}
	if p.Name != nil {
		desc += " name"
	}
	if p.Labels != nil {
		desc += " labels"
	}
	return f.record(desc)
}

func (f *fakeRemote) IncrementCounter(_ context.Context, id string, amount int64) error {
	if amount > 0 {
		return f.record("increment " + id + " +1")
	}
	return f.record("increment " + id + " -1")
}

func (f *fakeRemote) DeleteCounter(_ context.Context, id string) error {
	return f.record("soft-delete " + id)
}

func (f *fakeRemote) ReplaceCounters(_ context.Context, counters []models.Counter) error {
	if len(counters) == 0 {
		return f.record("replace empty")
	}
	return f.record("replace")
}

func (f *fakeRemote) CreateLabel(_ context.Context, l models.Label) (string, error) {
	return "srv", f.record("create-label " + l.Name)
}

func (f *fakeRemote) DeleteLabel(_ context.Context, id string) error {
	return f.record("delete-label " + id)
}

func (f *fakeRemote) Listen(_ context.Context, collection string) (<-chan models.Snapshot, func(), error) {
	ch := make(chan models.Snapshot)
	f.mu.Lock()
	f.streams[collection] = ch
	f.mu.Unlock()
	var once sync.Once
	return ch, func() { once.Do(func() { close(ch) }) }, nil
}

func (f *fakeRemote) ClearCache() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared++
}

func (f *fakeRemote) push(collection string, snap models.Snapshot) {
	f.mu.Lock()
	ch := f.streams[collection]
	f.mu.Unlock()
	snap.Collection = collection
	ch <- snap
}

type recorder struct {
	mu    sync.Mutex
	views []View
}

func (r *recorder) Render(v View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, v)
}

func (r *recorder) last() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.views[len(r.views)-1]
}

type fixture struct {
	c      *Coordinator
	local  *memLocal
	remote *fakeRemote
	views  *recorder
}

func newFixture(t *testing.T, counters ...models.Counter) *fixture {
	t.Helper()
	f := &fixture{local: &memLocal{counters: counters}, remote: newFakeRemote(), views: &recorder{}}
	f.c = New(Options{Local: f.local, Remote: f.remote, Renderer: f.views, Locale: domainerrors.LocaleEN})
	f.c.Load()
	t.Cleanup(f.c.Close)
	return f
}

func (f *fixture) signIn(t *testing.T) {
	t.Helper()
	require.NoError(t, f.c.EnterRemoteMode(context.Background(), &models.Identity{UserID: "u1", Token: "tok"}))
}

func (f *fixture) count(t *testing.T, id string) int64 {
	t.Helper()
	ct, found := f.c.View().Counter(id)
	require.True(t, found, "counter %s", id)
	return ct.Count
}

func TestIncrementDecrementReset_SignedSum(t *testing.T) {
	tests := []struct {
		name string
		ops  []ActionKind
		want int64
	}{
		{"empty", nil, 0},
		{"increments", []ActionKind{ActionIncrement, ActionIncrement}, 2},
		{"goes negative", []ActionKind{ActionDecrement, ActionDecrement, ActionIncrement}, -1},
		{"reset mid sequence", []ActionKind{ActionIncrement, ActionIncrement, ActionReset, ActionDecrement}, -1},
		{"reset last", []ActionKind{ActionDecrement, ActionReset}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, models.Counter{ID: "1", Name: "c"})
			for _, op := range tt.ops {
				require.True(t, f.c.Dispatch(context.Background(), Action{Kind: op, ID: "1"}).Success)
			}
			assert.Equal(t, tt.want, f.count(t, "1"))
			assert.Equal(t, tt.want, f.local.LoadCounters()[0].Count)
		})
	}
}

func TestPushUpsScenario(t *testing.T) {
	f := newFixture(t, models.Counter{ID: "1", Name: "Push-ups", Count: 5})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		f.c.Dispatch(ctx, Action{Kind: ActionIncrement, ID: "1"})
	}
	f.c.Dispatch(ctx, Action{Kind: ActionDecrement, ID: "1"})

	assert.EqualValues(t, 7, f.count(t, "1"))
	assert.Empty(t, f.remote.Calls())
}

func TestMutation_UnknownCounter(t *testing.T) {
	f := newFixture(t)
	res := f.c.Increment(context.Background(), "missing", 1)
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Error, domainerrors.ErrNotFound)
}

func TestAddCounter_LocalMode(t *testing.T) {
	f := newFixture(t)
	f.c.now = func() time.Time { return time.UnixMilli(1700000000000) }

	require.True(t, f.c.AddCounter(context.Background(), "  Water ").Success)

	v := f.c.View()
	require.Len(t, v.Counters, 1)
	assert.Equal(t, "Water", v.Counters[0].Name)
	assert.Zero(t, v.Counters[0].Count)
	assert.True(t, strings.HasPrefix(v.Counters[0].ID, "1700000000000"))
	assert.Len(t, f.local.LoadCounters(), 1)

	assert.False(t, f.c.AddCounter(context.Background(), "   ").Success)
}

func TestRename_TrimsAndRejectsBlank(t *testing.T) {
	for _, signedIn := range []bool{false, true} {
		t.Run(fmt.Sprintf("remote=%v", signedIn), func(t *testing.T) {
			f := newFixture(t, models.Counter{ID: "1", Name: "Push-ups"})
			if signedIn {
				f.signIn(t)
				f.remote.push(models.CollectionCounters, models.Snapshot{Counters: []models.Counter{{ID: "1", Name: "Push-ups", UserID: "u1"}}})
				require.Eventually(t, func() bool {
					ct, ok := f.c.View().Counter("1")
					return ok && ct.UserID == "u1"
				}, time.Second, time.Millisecond)
			}
			calls := len(f.remote.Calls())

			res := f.c.Rename(context.Background(), "1", "  ")
			assert.ErrorIs(t, res.Error, domainerrors.ErrInvalidArgument)
			ct, _ := f.c.View().Counter("1")
			assert.Equal(t, "Push-ups", ct.Name)
			assert.Len(t, f.remote.Calls(), calls, "blank names never reach the remote store")

			require.True(t, f.c.Rename(context.Background(), "1", " Squats ").Success)
			ct, _ = f.c.View().Counter("1")
			assert.Equal(t, "Squats", ct.Name)
		})
	}
}

func TestDeleteCounter_LocalModeRemovesPhysically(t *testing.T) {
	f := newFixture(t, models.Counter{ID: "1"}, models.Counter{ID: "2"})
	require.True(t, f.c.DeleteCounter(context.Background(), "1").Success)

	stored := f.local.LoadCounters()
	require.Len(t, stored, 1)
	assert.Equal(t, "2", stored[0].ID)
}

func TestDeleteLabel_DoesNotCascade(t *testing.T) {
	f := newFixture(t, models.Counter{ID: "1", Labels: []string{"l1"}})
	require.True(t, f.c.AddLabel(context.Background(), "health", "").Success)
	labelID := f.c.View().Labels[0].ID
	assert.Equal(t, DefaultLabelColor, f.c.View().Labels[0].Color)

	require.True(t, f.c.SetLabels(context.Background(), "1", []string{labelID, labelID}).Success)
	require.True(t, f.c.DeleteLabel(context.Background(), labelID).Success)

	v := f.c.View()
	assert.Empty(t, v.Labels)
	assert.Equal(t, []string{labelID}, v.Counters[0].Labels)
}

func TestEditSession_SingleCounter(t *testing.T) {
	f := newFixture(t, models.Counter{ID: "A"}, models.Counter{ID: "B"})

	require.True(t, f.c.BeginEdit("A").Success)
	require.True(t, f.c.BeginEdit("B").Success)

	assert.Equal(t, "B", f.c.EditingID())
	assert.Equal(t, "B", f.views.last().EditingID)
}

func TestEditSession_SurvivesRerender(t *testing.T) {
	f := newFixture(t, models.Counter{ID: "A"}, models.Counter{ID: "B"})
	require.True(t, f.c.BeginEdit("A").Success)

	f.c.Increment(context.Background(), "B", 1)

	assert.Equal(t, "A", f.views.last().EditingID)
}

func TestSaveEdit_ParsesInput(t *testing.T) {
	tests := []struct {
		text string
		want int64
	}{
		{"42", 42},
		{" -3 ", -3},
		{"12abc", 12},
		{"3.7", 3},
		{"abc", 0},
		{"", 0},
		{"-", 0},
		{"99999999999999999999", 0},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			f := newFixture(t, models.Counter{ID: "1", Count: 8})
			require.True(t, f.c.BeginEdit("1").Success)

			require.True(t, f.c.SaveEdit(context.Background(), "1", tt.text).Success)
			assert.Equal(t, tt.want, f.count(t, "1"))
			assert.Empty(t, f.c.EditingID())
		})
	}
}

func TestCancelEdit(t *testing.T) {
	f := newFixture(t, models.Counter{ID: "1", Count: 8})
	f.c.BeginEdit("1")
	f.c.CancelEdit()

	assert.Empty(t, f.c.EditingID())
	assert.EqualValues(t, 8, f.count(t, "1"))
}

func TestSignOut_ClearsEditSession(t *testing.T) {
	f := newFixture(t, models.Counter{ID: "1", Name: "Push-ups", Count: 5})
	f.signIn(t)
	f.remote.push(models.CollectionCounters, models.Snapshot{Counters: []models.Counter{{ID: "1", Name: "Push-ups", Count: 9}}})
	require.Eventually(t, func() bool { return f.c.View().Status == "Data synced" }, time.Second, time.Millisecond)
	require.True(t, f.c.BeginEdit("1").Success)

	f.c.ExitRemoteMode()

	v := f.c.View()
	assert.Empty(t, v.EditingID)
	assert.Equal(t, ModeLocal, v.Mode)
	assert.Nil(t, v.Identity)
	assert.EqualValues(t, 5, v.Counters[0].Count)
	assert.Equal(t, 1, f.remote.cleared)
}

func TestRemoteMode_RoutesWritesByPolicy(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	ctx := context.Background()
	f.remote.push(models.CollectionCounters, models.Snapshot{Counters: []models.Counter{{ID: "r1", Name: "a", Count: 1}}})
	require.Eventually(t, func() bool { return len(f.c.View().Counters) == 1 }, time.Second, time.Millisecond)
	saves := f.local.saves

	require.True(t, f.c.AddCounter(ctx, "new").Success)
	assert.Len(t, f.c.View().Counters, 1, "created counters wait for the echo")

	f.c.Increment(ctx, "r1", 1)
	f.c.Increment(ctx, "r1", -1)
	f.c.Reset(ctx, "r1")
	f.c.Rename(ctx, "r1", "b")
	f.c.AddLabel(ctx, "tag", "#fff")
	f.c.DeleteLabel(ctx, "missing")
	f.c.DeleteCounter(ctx, "r1")
	f.c.ResetAll(ctx)

	assert.Equal(t, []string{
		"create-counter new",
		"increment r1 +1",
		"increment r1 -1",
		"update r1 count",
		"update r1 name",
		"create-label tag",
		"soft-delete r1",
		"replace empty",
	}, f.remote.Calls())
	assert.Equal(t, saves, f.local.saves, "local store is not written in remote mode")
}

func TestRemoteMode_FailureKeepsOptimisticChange(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	f.remote.push(models.CollectionCounters, models.Snapshot{Counters: []models.Counter{{ID: "r1", Count: 1}}})
	require.Eventually(t, func() bool { return len(f.c.View().Counters) == 1 }, time.Second, time.Millisecond)

	f.remote.err = domainerrors.ErrPermissionDenied
	res := f.c.Increment(context.Background(), "r1", 1)

	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Error, domainerrors.ErrPermissionDenied)
	assert.EqualValues(t, 2, f.count(t, "r1"))
	assert.Contains(t, f.c.Status(), "Sync failed")
}

func TestRemoteSnapshot_ReplacesWholesale(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)

	f.remote.push(models.CollectionCounters, models.Snapshot{Counters: []models.Counter{{ID: "a"}, {ID: "b"}}})
	f.remote.push(models.CollectionCounters, models.Snapshot{Counters: []models.Counter{{ID: "c"}}})
	f.remote.push(models.CollectionLabels, models.Snapshot{Labels: []models.Label{{ID: "l"}}})
	require.Eventually(t, func() bool {
		v := f.c.View()
		return len(v.Labels) == 1 && len(v.Counters) == 1 && v.Counters[0].ID == "c"
	}, time.Second, time.Millisecond)

	v := f.c.View()
	assert.False(t, v.LastSyncedAt.IsZero())
}

func TestRemoteSnapshot_ErrorOnlyUpdatesStatus(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	f.remote.push(models.CollectionCounters, models.Snapshot{Counters: []models.Counter{{ID: "a"}}})
	f.remote.push(models.CollectionCounters, models.Snapshot{Err: domainerrors.ErrUnavailable})
	require.Eventually(t, func() bool { return strings.HasPrefix(f.c.Status(), "Sync failed") }, time.Second, time.Millisecond)

	assert.Len(t, f.c.View().Counters, 1)
}

func TestOnRemoteSnapshot_IgnoredInLocalMode(t *testing.T) {
	f := newFixture(t, models.Counter{ID: "local"})
	f.c.OnRemoteSnapshot(models.Snapshot{Collection: models.CollectionCounters, Counters: []models.Counter{{ID: "remote"}}})

	assert.Equal(t, "local", f.c.View().Counters[0].ID)
}

func TestEnterRemoteMode_RequiresRemote(t *testing.T) {
	c := New(Options{Local: &memLocal{}})
	err := c.EnterRemoteMode(context.Background(), &models.Identity{UserID: "u"})
	assert.ErrorIs(t, err, domainerrors.ErrUnavailable)
	assert.Equal(t, ModeLocal, c.Mode())
}

func TestExportImport_RoundTrip(t *testing.T) {
	f := newFixture(t,
		models.Counter{ID: "1", Name: "Push-ups", Count: 5, Labels: []string{"l1"}},
		models.Counter{ID: "2", Name: "Coffee", Count: -2},
	)
	var buf bytes.Buffer
	require.True(t, f.c.ExportCounters(&buf, time.Now()).Success)

	f.c.ResetAll(context.Background())
	require.Empty(t, f.c.View().Counters)

	require.True(t, f.c.ImportCounters(context.Background(), &buf).Success)
	v := f.c.View()
	require.Len(t, v.Counters, 2)
	assert.Equal(t, "Push-ups", v.Counters[0].Name)
	assert.EqualValues(t, 5, v.Counters[0].Count)
	assert.Equal(t, []string{"l1"}, v.Counters[0].Labels)
	assert.Equal(t, "File loaded", v.Status)
}

func TestImport_InvalidDocumentLeavesStateUnchanged(t *testing.T) {
	for _, doc := range []string{`{"version":"1.0"}`, `{"counters":"nope"}`, `not json`} {
		f := newFixture(t, models.Counter{ID: "keep", Count: 3})
		res := f.c.ImportCounters(context.Background(), strings.NewReader(doc))

		assert.False(t, res.Success)
		v := f.c.View()
		require.Len(t, v.Counters, 1)
		assert.Equal(t, "keep", v.Counters[0].ID)
		assert.Equal(t, "Failed to load file: Invalid file format", v.Status)
	}
}

func TestImport_KeepsOnlyValidEntries(t *testing.T) {
	f := newFixture(t, models.Counter{ID: "old"})
	doc := `{"counters":[{"id":"1","name":"ok","count":2},{"id":"2","name":"bad","count":"x"}]}`

	require.True(t, f.c.ImportCounters(context.Background(), strings.NewReader(doc)).Success)

	v := f.c.View()
	require.Len(t, v.Counters, 1)
	assert.Equal(t, "1", v.Counters[0].ID)
}

func TestImport_RemoteModeReplacesRemotely(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	doc := `{"counters":[{"id":"1","name":"ok","count":2}]}`

	require.True(t, f.c.ImportCounters(context.Background(), strings.NewReader(doc)).Success)
	assert.Equal(t, []string{"replace"}, f.remote.Calls())
}

func TestExportFileImportFile(t *testing.T) {
	f := newFixture(t, models.Counter{ID: "1", Name: "a", Count: 4})
	path, res := f.c.ExportFile(t.TempDir(), time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC))
	require.True(t, res.Success)
	assert.True(t, strings.HasSuffix(path, "counter_data_2025-01-02.json"))

	f.c.ResetAll(context.Background())
	require.True(t, f.c.ImportFile(context.Background(), path).Success)
	assert.EqualValues(t, 4, f.count(t, "1"))
}

func TestDispatch_UnknownAction(t *testing.T) {
	f := newFixture(t)
	res := f.c.Dispatch(context.Background(), Action{Kind: ActionKind(99)})
	assert.ErrorIs(t, res.Error, domainerrors.ErrInvalidArgument)
	assert.Equal(t, "unknown", ActionKind(99).String())
}
