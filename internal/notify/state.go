package notify

import (
	"strconv"

	"github.com/safar/storefront/internal/models"
)

type Phase int

const (
	// PhaseIdle: nothing fetched yet for this session.
	PhaseIdle Phase = iota
	// PhaseSynced: local state reflects the last server responses.
	PhaseSynced
	// PhaseStale: a push event was applied locally and the server counter
	// has not been re-read since.
	PhaseStale
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSynced:
		return "synced"
	case PhaseStale:
		return "stale"
	default:
		return "unknown"
	}
}

const maxBadge = 99

// View is a snapshot of the notifications state shown to the user.
type View struct {
	Items        []models.NotificationItem
	LocalUnread  int
	ServerUnread *int
	ModalOpen    bool
	Phase        Phase
}

// DisplayedUnread prefers the server counter once it has answered and falls
// back to the local count before that.
func (v View) DisplayedUnread() int {
	if v.ServerUnread != nil {
		return *v.ServerUnread
	}
	return v.LocalUnread
}

func (v View) BadgeLabel() string {
	n := v.DisplayedUnread()
	switch {
	case n <= 0:
		return ""
	case n > maxBadge:
		return strconv.Itoa(maxBadge) + "+"
	default:
		return strconv.Itoa(n)
	}
}

// state is the reducer behind the engine. Two producers feed it: server
// responses (replaceList, setServerUnread) and push events (prepend).
type state struct {
	items        []models.NotificationItem
	lastPage     []models.NotificationItem
	hasPage      bool
	localUnread  int
	serverUnread *int
	modalOpen    bool
	phase        Phase
}

// replaceList applies a fetched page. A page identical to the previous one
// leaves local state alone, so optimistic changes survive a no-op refetch.
func (s *state) replaceList(page []models.NotificationItem) bool {
	if s.hasPage && sameItems(s.lastPage, page) {
		return false
	}
	s.lastPage = page
	s.hasPage = true
	s.items = append([]models.NotificationItem(nil), page...)
	s.localUnread = countUnread(s.items)
	if s.phase == PhaseIdle {
		s.phase = PhaseSynced
	}
	return true
}

func (s *state) setServerUnread(count int) {
	s.serverUnread = &count
	s.phase = PhaseSynced
}

// prepend adds a pushed item in front. With dedup set an id already in the
// list is ignored and false is returned.
func (s *state) prepend(item models.NotificationItem, dedup bool) bool {
	if dedup {
		for _, existing := range s.items {
			if existing.ID == item.ID {
				return false
			}
		}
	}
	s.items = append([]models.NotificationItem{item}, s.items...)
	if !item.Read {
		s.localUnread++
	}
	s.phase = PhaseStale
	return true
}

func (s *state) markAllRead() {
	items := make([]models.NotificationItem, len(s.items))
	for i, item := range s.items {
		item.Read = true
		items[i] = item
	}
	s.items = items
	s.localUnread = 0
}

func (s *state) view() View {
	v := View{
		Items:       append([]models.NotificationItem(nil), s.items...),
		LocalUnread: s.localUnread,
		ModalOpen:   s.modalOpen,
		Phase:       s.phase,
	}
	if s.serverUnread != nil {
		count := *s.serverUnread
		v.ServerUnread = &count
	}
	return v
}

func countUnread(items []models.NotificationItem) int {
	n := 0
	for _, item := range items {
		if !item.Read {
			n++
		}
	}
	return n
}

func sameItems(a, b []models.NotificationItem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID ||
			a[i].Title != b[i].Title ||
			a[i].Message != b[i].Message ||
			a[i].Read != b[i].Read ||
			a[i].OrderID != b[i].OrderID ||
			!a[i].CreatedAt.Equal(b[i].CreatedAt) {
			return false
		}
	}
	return true
}
