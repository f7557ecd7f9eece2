// Package core wires the queue store, chain resolver, organizer, selection
// state and submission gateway into one orchestration instance. All shared
// state mutations funnel through here; observers receive immutable
// snapshots after every change.
package core

import (
	"context"
	"log"
	"sync"

	"github.com/sprite-ai/batchrev/internal/automation"
	"github.com/sprite-ai/batchrev/internal/backend"
	"github.com/sprite-ai/batchrev/internal/chain"
	"github.com/sprite-ai/batchrev/internal/diffview"
	"github.com/sprite-ai/batchrev/internal/model"
	"github.com/sprite-ai/batchrev/internal/organize"
	"github.com/sprite-ai/batchrev/internal/queue"
	"github.com/sprite-ai/batchrev/internal/selection"
	"github.com/sprite-ai/batchrev/internal/submit"
)

// Options configures a Core instance.
type Options struct {
	Query          string // incoming-queue search filter
	AutomationPort int
	MaxBody        int64
}

// Core is one orchestration instance. Construct it explicitly and pass it
// to dependents; there is no package-level shared instance.
type Core struct {
	backend   backend.ReviewBackend
	store     *queue.Store
	resolver  *chain.Resolver
	organizer *organize.Organizer
	gateway   *submit.Gateway
	server    *automation.Server
	query     string

	mu          sync.Mutex
	selIncoming *selection.State
	selBatch    *selection.State
	observers   []func(model.Snapshot)
}

// New creates a core over the given backend.
func New(b backend.ReviewBackend, opts Options) *Core {
	c := &Core{
		backend:     b,
		store:       queue.NewStore(),
		resolver:    chain.NewResolver(b),
		query:       opts.Query,
		selIncoming: selection.New(),
		selBatch:    selection.New(),
	}
	c.organizer = organize.New(c.resolver)
	c.gateway = submit.NewGateway(b)
	c.server = automation.New(c, opts.AutomationPort, opts.MaxBody)
	c.store.OnChange(c.onStoreChange)
	return c
}

// OnSnapshot registers an observer for state pushes.
func (c *Core) OnSnapshot(fn func(model.Snapshot)) {
	c.mu.Lock()
	c.observers = append(c.observers, fn)
	c.mu.Unlock()
}

// Snapshot returns the current observable state.
func (c *Core) Snapshot() model.Snapshot {
	incoming := c.store.IncomingItems()
	batch := c.store.BatchItems()
	state, port := c.server.State()

	c.mu.Lock()
	snap := model.Snapshot{
		Incoming:    incoming,
		Batch:       batch,
		IncomingSel: c.selIncoming.IDs(restIDs(incoming)),
		BatchSel:    c.selBatch.IDs(restIDs(batch)),
		ServerState: state,
		ServerPort:  port,
	}
	c.mu.Unlock()
	return snap
}

// onStoreChange runs after every queue mutation: stale selections are
// reconciled against the new lists, then observers get the fresh snapshot.
func (c *Core) onStoreChange() {
	incoming := restIDs(c.store.IncomingItems())
	batch := restIDs(c.store.BatchItems())

	c.mu.Lock()
	c.selIncoming.Sync(incoming)
	c.selBatch.Sync(batch)
	c.mu.Unlock()

	c.publish()
}

func (c *Core) publish() {
	snap := c.Snapshot()
	c.mu.Lock()
	observers := make([]func(model.Snapshot), len(c.observers))
	copy(observers, c.observers)
	c.mu.Unlock()

	for _, fn := range observers {
		fn(snap)
	}
	c.server.Broadcast(snap)
}

func restIDs(items []model.ReviewItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.RestID
	}
	return out
}

// --- Queue commands ---

// Refresh refetches the incoming queue. Items already staged in Batch are
// excluded by the store.
func (c *Core) Refresh(ctx context.Context) error {
	items, err := c.backend.ListAssignedChanges(ctx, c.query)
	if err != nil {
		return err
	}
	c.store.ReplaceIncoming(items)
	return nil
}

// AddToBatch stages items with optional severities. The mutation is visible
// immediately; the canonical re-sort runs in the background.
func (c *Core) AddToBatch(ids []string, severities map[string]model.Severity) {
	c.store.AddToBatch(ids, severities, -1)
	c.organizeAsync()
}

// AddToBatchAt stages items at a specific index (drag-and-drop insertion).
func (c *Core) AddToBatchAt(ids []string, severities map[string]model.Severity, insertAt int) {
	c.store.AddToBatch(ids, severities, insertAt)
	c.organizeAsync()
}

// RemoveFromBatch returns items to the incoming queue.
func (c *Core) RemoveFromBatch(ids []string, insertAt int) {
	c.store.RemoveFromBatch(ids, insertAt)
}

// ClearBatch returns every staged item to the incoming queue.
func (c *Core) ClearBatch() {
	c.store.ClearBatch()
}

// Reorder moves ids within one queue to dropIndex.
func (c *Core) Reorder(ids []string, target queue.Name, dropIndex int) {
	c.store.Reorder(ids, target, dropIndex)
}

// organizeAsync recomputes the batch order off the mutation path. A stale
// result (the queue changed underneath) is discarded by the store's
// order-changed comparison.
func (c *Core) organizeAsync() {
	items := c.store.BatchItems()
	if len(items) == 0 {
		return
	}
	go func() {
		order := c.organizer.Order(context.Background(), items)
		c.store.ApplyBatchOrder(order)
	}()
}

// --- Selection commands ---

// SelectToggle flips one item's selection in the named list.
func (c *Core) SelectToggle(list queue.Name, id string) {
	ids := c.listIDs(list)
	c.mu.Lock()
	c.sel(list).Toggle(id, ids)
	c.mu.Unlock()
	c.publish()
}

// SelectRange extends the selection from the anchor to the clicked index.
func (c *Core) SelectRange(list queue.Name, clickedIndex int) {
	ids := c.listIDs(list)
	c.mu.Lock()
	c.sel(list).Range(clickedIndex, ids)
	c.mu.Unlock()
	c.publish()
}

// SelectChain toggles the clicked item's whole chain within the list. An
// unchained item degrades to a plain toggle.
func (c *Core) SelectChain(list queue.Name, id string) {
	items := c.listItems(list)
	ids := restIDs(items)
	members := c.chainMembers(items, id)

	c.mu.Lock()
	if len(members) == 0 {
		c.sel(list).Toggle(id, ids)
	} else {
		c.sel(list).ToggleGroup(id, members, ids)
	}
	c.mu.Unlock()
	c.publish()
}

// SelectAll selects everything in the named list.
func (c *Core) SelectAll(list queue.Name) {
	ids := c.listIDs(list)
	c.mu.Lock()
	c.sel(list).SelectAll(ids)
	c.mu.Unlock()
	c.publish()
}

// SelectNone clears the named list's selection.
func (c *Core) SelectNone(list queue.Name) {
	c.mu.Lock()
	c.sel(list).Clear()
	c.mu.Unlock()
	c.publish()
}

// SelectedIDs returns the current selection of the named list in list order.
func (c *Core) SelectedIDs(list queue.Name) []string {
	ids := c.listIDs(list)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sel(list).IDs(ids)
}

// chainMembers returns the restIds in items that share the clicked item's
// chain, per the resolver's cache. Uncached items count as standalone: the
// chain badge the user clicked can only exist for resolved items.
func (c *Core) chainMembers(items []model.ReviewItem, id string) []string {
	var clicked *model.ReviewItem
	for i := range items {
		if items[i].RestID == id {
			clicked = &items[i]
			break
		}
	}
	if clicked == nil {
		return nil
	}
	info, ok := c.resolver.Cached(clicked.VcsID)
	if !ok || !info.InChain {
		return nil
	}

	var members []string
	for _, it := range items {
		if mi, ok := c.resolver.Cached(it.VcsID); ok && mi.InChain && mi.ChainBaseID == info.ChainBaseID {
			members = append(members, it.RestID)
		}
	}
	return members
}

// CachedChain exposes the resolver cache for display badges. It never
// touches the network.
func (c *Core) CachedChain(vcsID string) (model.ChainInfo, bool) {
	return c.resolver.Cached(vcsID)
}

func (c *Core) sel(list queue.Name) *selection.State {
	if list == queue.Batch {
		return c.selBatch
	}
	return c.selIncoming
}

func (c *Core) listItems(list queue.Name) []model.ReviewItem {
	if list == queue.Batch {
		return c.store.BatchItems()
	}
	return c.store.IncomingItems()
}

func (c *Core) listIDs(list queue.Name) []string {
	return restIDs(c.listItems(list))
}

// --- Server commands ---

// StartServer brings up the automation control plane.
func (c *Core) StartServer() (int, error) {
	port, err := c.server.Start()
	c.publish()
	return port, err
}

// StopServer tears it down.
func (c *Core) StopServer() error {
	err := c.server.Stop()
	c.publish()
	return err
}

// --- Item detail ---

// LoadFiles lazily populates an item's file list. Fetch failures degrade to
// an empty, still-unloaded list.
func (c *Core) LoadFiles(ctx context.Context, id string) {
	for _, it := range c.listItems(queue.Batch) {
		if it.RestID == id && it.FilesLoaded {
			return
		}
	}
	for _, it := range c.listItems(queue.Incoming) {
		if it.RestID == id && it.FilesLoaded {
			return
		}
	}

	files, err := c.backend.FileList(ctx, id)
	if err != nil {
		log.Printf("core: file list for %s failed: %v", id, err)
		return
	}
	c.store.UpdateItem(id, func(item *model.ReviewItem) {
		item.Files = files
		item.FilesLoaded = true
	})
}

// Preview fetches and parses the item's current patch. The parsed file
// stats also satisfy the item's lazy file list.
func (c *Core) Preview(ctx context.Context, id string) (*diffview.Preview, error) {
	patch, err := c.backend.Patch(ctx, id)
	if err != nil {
		return nil, err
	}
	p, err := diffview.Parse(patch)
	if err != nil {
		return nil, err
	}
	c.store.UpdateItem(id, func(item *model.ReviewItem) {
		if !item.FilesLoaded {
			item.Files = p.FileInfos()
			item.FilesLoaded = true
		}
	})
	return p, nil
}

// --- Submission (human-confirmed paths only) ---

// orderedBatch returns the batch in canonical order, re-running the
// organizer synchronously first. A submission confirmed in the window
// before a background re-sort lands must still walk chains base-first.
func (c *Core) orderedBatch(ctx context.Context) []model.ReviewItem {
	items := c.store.BatchItems()
	if len(items) > 1 {
		if c.store.ApplyBatchOrder(c.organizer.Order(ctx, items)) {
			items = c.store.BatchItems()
		}
	}
	return items
}

// Vote applies one vote to the whole batch in canonical order, then returns
// every item to the incoming queue: the batch records what was offered for
// action, not what succeeded.
func (c *Core) Vote(ctx context.Context, req backend.VoteRequest) submit.Report {
	report := c.gateway.ApplyVote(ctx, c.orderedBatch(ctx), req)
	c.store.ClearBatch()
	return report
}

// ApproveAll posts only the approving label, leaves the batch staged, and
// flags succeeded items so a later SubmitAll can follow.
func (c *Core) ApproveAll(ctx context.Context) submit.Report {
	report := c.gateway.ApplyApproval(ctx, c.orderedBatch(ctx))
	for _, id := range report.Succeeded() {
		c.store.UpdateItem(id, func(item *model.ReviewItem) {
			item.HasApprovingVote = true
		})
	}
	return report
}

// SubmitAll submits the batch in canonical order. Only successfully
// submitted items leave the queue; failures and skips stay staged for retry.
func (c *Core) SubmitAll(ctx context.Context) submit.Report {
	report := c.gateway.SubmitAll(ctx, c.orderedBatch(ctx))
	c.store.DropFromBatch(report.Succeeded())
	return report
}
