package session

import (
	"sync"

	"github.com/worknest/worknest-go/users"
)

// State is the client's locally cached belief about the session: whether the
// user is authenticated and, if so, who they are. Authenticated reflects the
// presence of a non-empty access token at the time it was last evaluated; it
// is a point-in-time cache, not continuously re-validated.
type State struct {
	Authenticated bool
	User          *users.User
}

// Listener receives session state changes. Delivery is synchronous: the
// listener runs inside the operation that changed the state.
type Listener func(State)

// NoticeListener receives user-facing notices such as the session-expired
// message.
type NoticeListener func(string)

// signalHub is a small publish/subscribe registry with synchronous delivery,
// shared by every UI element that reads the session reactively.
type signalHub struct {
	lock            sync.Mutex
	nextID          int
	stateListeners  map[int]Listener
	noticeListeners map[int]NoticeListener
}

func newSignalHub() *signalHub {
	return &signalHub{
		stateListeners:  make(map[int]Listener),
		noticeListeners: make(map[int]NoticeListener),
	}
}

func (h *signalHub) subscribe(l Listener) func() {
	h.lock.Lock()
	defer h.lock.Unlock()
	id := h.nextID
	h.nextID++
	h.stateListeners[id] = l
	return func() {
		h.lock.Lock()
		defer h.lock.Unlock()
		delete(h.stateListeners, id)
	}
}

func (h *signalHub) subscribeNotices(l NoticeListener) func() {
	h.lock.Lock()
	defer h.lock.Unlock()
	id := h.nextID
	h.nextID++
	h.noticeListeners[id] = l
	return func() {
		h.lock.Lock()
		defer h.lock.Unlock()
		delete(h.noticeListeners, id)
	}
}

func (h *signalHub) emitState(s State) {
	for _, l := range h.snapshotState() {
		l(s)
	}
}

func (h *signalHub) emitNotice(msg string) {
	for _, l := range h.snapshotNotices() {
		l(msg)
	}
}

func (h *signalHub) snapshotState() []Listener {
	h.lock.Lock()
	defer h.lock.Unlock()
	out := make([]Listener, 0, len(h.stateListeners))
	for _, l := range h.stateListeners {
		out = append(out, l)
	}
	return out
}

func (h *signalHub) snapshotNotices() []NoticeListener {
	h.lock.Lock()
	defer h.lock.Unlock()
	out := make([]NoticeListener, 0, len(h.noticeListeners))
	for _, l := range h.noticeListeners {
		out = append(out, l)
	}
	return out
}
