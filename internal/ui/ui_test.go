package ui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/BioHazard786/Roomdrop/internal/rooms"
)

func TestPeersTableView(t *testing.T) {
	view := PeersTableView(rooms.PublicRoom{
		ID: "apple-river-stone",
		Peers: []rooms.PublicPeer{
			{ID: "u-1", Name: "alice"},
			{ID: "u-2"},
		},
	})
	for _, want := range []string{"apple-river-stone", "u-1", "alice", "u-2", "Peer ID"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}

	empty := PeersTableView(rooms.PublicRoom{ID: "x"})
	if !strings.Contains(empty, "No peers") {
		t.Fatalf("empty room view = %q", empty)
	}
}

func TestTransferSummaryView(t *testing.T) {
	view := TransferSummaryView("Summary", TransferSummary{
		Status:  "Complete",
		File:    "report.pdf",
		Size:    "1.00 MB",
		SavedTo: "/tmp/report.pdf",
	})
	for _, want := range []string{"Summary", "report.pdf", "1.00 MB", "Saved To"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
	if strings.Contains(TransferSummaryView("s", TransferSummary{}), "Saved To") {
		t.Fatal("Saved To row shown without a path")
	}
}

func TestRoomInfoView(t *testing.T) {
	view := RoomInfoView("apple-river-stone")
	if !strings.Contains(view, "roomdrop receive apple-river-stone") {
		t.Fatalf("missing receive hint:\n%s", view)
	}
}

func TestTransferModel(t *testing.T) {
	cancelled := false
	m := newTransferModel(ModeReceive, "a.bin", 100, func() { cancelled = true })

	m.Update(progressMsg(50))
	if m.current != 50 || m.percent() != 0.5 {
		t.Fatalf("current=%d percent=%v", m.current, m.percent())
	}
	if !strings.Contains(m.View(), "Receiving") {
		t.Fatalf("view = %q", m.View())
	}

	m.Update(stateMsg("Saving..."))
	if !strings.Contains(m.View(), "Saving...") {
		t.Fatalf("state not shown: %q", m.View())
	}

	_, cmd := m.Update(finishMsg{err: errors.New("boom")})
	if cmd == nil || !m.done {
		t.Fatal("finish should quit the program")
	}
	if !strings.Contains(m.View(), "boom") {
		t.Fatalf("error not shown: %q", m.View())
	}

	m2 := newTransferModel(ModeSend, "b.bin", 10, func() { cancelled = true })
	m2.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if !cancelled || !m2.quitting {
		t.Fatal("ctrl+c should cancel the transfer")
	}
}

func TestTransferModel_EmptyFile(t *testing.T) {
	m := newTransferModel(ModeSend, "empty", 0, nil)
	if m.percent() != 0 {
		t.Fatalf("percent before finish = %v", m.percent())
	}
	m.Update(finishMsg{})
	if m.percent() != 1 {
		t.Fatalf("percent after finish = %v", m.percent())
	}
}

func TestTransferUI_NotStarted(t *testing.T) {
	u := NewTransferUI(ModeSend, "x", 1, nil)
	// None of these may block when the program never ran.
	u.Update(1)
	u.SetState("x")
	u.Finish(nil)
}

func TestSpinner_StopIsIdempotent(t *testing.T) {
	sp := NewWaitingSpinner("waiting")
	sp.Start()
	sp.SetMessage("still waiting")
	sp.Success("done")
	sp.Fail("ignored")
	sp.Stop()

	sp.mu.Lock()
	defer sp.mu.Unlock()
	if !sp.stopped || sp.message != "still waiting" {
		t.Fatalf("stopped = %v, message = %q", sp.stopped, sp.message)
	}
}
