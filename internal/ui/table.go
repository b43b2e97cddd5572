package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/BioHazard786/Roomdrop/internal/rooms"
)

func styleRows(row, col int) lipgloss.Style {
	switch {
	case row == lgtable.HeaderRow:
		return TableHeaderStyle
	case row%2 == 0:
		return TableRowStyle
	default:
		return TableRowAltStyle
	}
}

// TransferSummary is shown once a file has been sent or saved.
type TransferSummary struct {
	Status   string
	File     string
	Size     string
	Duration string
	Speed    string
	SavedTo  string
}

func TransferSummaryView(title string, s TransferSummary) string {
	rows := [][]string{
		{"Status", s.Status},
		{"File", s.File},
		{"Size", s.Size},
		{"Duration", s.Duration},
		{"Avg Speed", s.Speed},
	}
	if s.SavedTo != "" {
		rows = append(rows, []string{"Saved To", s.SavedTo})
	}

	tbl := lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers("Metric", "Value").
		Rows(rows...).
		StyleFunc(styleRows)

	return TitleStyle.Render(title) + "\n" + tbl.Render()
}

func RenderTransferSummary(title string, s TransferSummary) {
	fmt.Println(TransferSummaryView(title, s))
}

// RoomInfoView is the box printed after a room is created.
func RoomInfoView(roomID string) string {
	content := fmt.Sprintf("%s Room Created!\n\n%s Room ID:  %s\n\n%s\n%s",
		IconSuccess,
		IconCopy, BoldStyle.Foreground(Primary).Render(roomID),
		MutedStyle.Render("roomdrop receive "+roomID),
		MutedStyle.Render("roomdrop send "+roomID+" <file>"),
	)
	return RoomBoxStyle.Render(content)
}

func RenderRoomInfo(roomID string) {
	fmt.Println(RoomInfoView(roomID))
}

// PeersTableView lists a room's members in join order.
func PeersTableView(room rooms.PublicRoom) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s Room %s\n", IconRoom, BoldStyle.Foreground(Primary).Render(room.ID))

	if len(room.Peers) == 0 {
		b.WriteString(MutedStyle.Render("No peers have joined yet"))
		return b.String()
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Header = text.FormatDefault
	t.AppendHeader(table.Row{"#", "Peer ID", "Name"})
	for i, p := range room.Peers {
		name := p.Name
		if name == "" {
			name = "-"
		}
		t.AppendRow(table.Row{strconv.Itoa(i + 1), p.ID, name})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
	})
	b.WriteString(t.Render())
	return b.String()
}

func RenderPeersTable(room rooms.PublicRoom) {
	fmt.Println(PeersTableView(room))
}
