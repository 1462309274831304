package identifier

import (
	"time"

	"github.com/keri-id/controller/internal/event"
	"github.com/keri-id/controller/internal/oobi"
	"github.com/keri-id/controller/internal/primitive"
	"github.com/keri-id/controller/internal/transport"
)

// currentWatchers reads this Controller's own end-role reply for
// RoleWatcher out of the OOBI store, or an empty set if none has been
// saved yet.
func (c *Controller) currentWatchers() ([]primitive.Identifier, error) {
	if c.oobiStore == nil {
		return nil, nil
	}
	return c.oobiStore.GetEndRole(c.Prefix(), transport.RoleWatcher)
}

func dedupAppend(ids []primitive.Identifier, add primitive.Identifier) []primitive.Identifier {
	for _, id := range ids {
		if id.Equal(add) {
			return ids
		}
	}
	return append(ids, add)
}

func remove(ids []primitive.Identifier, drop primitive.Identifier) []primitive.Identifier {
	out := ids[:0]
	for _, id := range ids {
		if !id.Equal(drop) {
			out = append(out, id)
		}
	}
	return out
}

func endRoleData(subject primitive.Identifier, watchers []primitive.Identifier) (map[string]any, error) {
	text, err := subject.Text()
	if err != nil {
		return nil, err
	}
	eids := make([]string, len(watchers))
	for i, w := range watchers {
		t, err := w.Text()
		if err != nil {
			return nil, err
		}
		eids[i] = t
	}
	return map[string]any{"i": text, "eids": eids}, nil
}

// PrepareAddWatcher builds the unsigned rpy naming watcher, alongside every
// watcher already on record, as authorized watchers for this Controller.
func (c *Controller) PrepareAddWatcher(watcher primitive.Identifier) (event.Reply, []byte, error) {
	current, err := c.currentWatchers()
	if err != nil {
		return event.Reply{}, nil, err
	}
	data, err := endRoleData(c.Prefix(), dedupAppend(current, watcher))
	if err != nil {
		return event.Reply{}, nil, err
	}
	return event.NewReply(c.kind, event.EndRoleRoute+"/"+string(transport.RoleWatcher), time.Now(), data)
}

// PrepareRemoveWatcher builds the unsigned rpy dropping watcher from the
// authorized watcher set.
func (c *Controller) PrepareRemoveWatcher(watcher primitive.Identifier) (event.Reply, []byte, error) {
	current, err := c.currentWatchers()
	if err != nil {
		return event.Reply{}, nil, err
	}
	data, err := endRoleData(c.Prefix(), remove(current, watcher))
	if err != nil {
		return event.Reply{}, nil, err
	}
	return event.NewReply(c.kind, event.EndRoleRoute+"/"+string(transport.RoleWatcher), time.Now(), data)
}

// FinalizeWatcherReply persists the signed end-role rpy built by
// PrepareAddWatcher or PrepareRemoveWatcher.
func (c *Controller) FinalizeWatcherReply(reply event.Reply, sigs []primitive.IndexedSignature) error {
	if c.oobiStore == nil {
		return nil
	}
	return c.oobiStore.SaveOOBI(oobi.SignedReply{Reply: reply, Signer: c.Prefix(), Sigs: sigs})
}
