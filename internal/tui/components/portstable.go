package components

import (
	serialconn "github.com/allbin/go-serial-conn"
	"github.com/allbin/go-serial-conn/internal/tui/colors"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"
)

const (
	columnKeyName        = "name"
	columnKeyPath        = "path"
	columnKeyDescription = "description"
)

// PortsTable is a selectable table of detected serial ports
type PortsTable struct {
	table table.Model
	ports []serialconn.PortInfo
}

func NewPortsTable(ports []serialconn.PortInfo) *PortsTable {
	columns := []table.Column{
		table.NewColumn(columnKeyName, "Port", 14),
		table.NewColumn(columnKeyPath, "Device", 20),
		table.NewFlexColumn(columnKeyDescription, "Description", 1),
	}

	rows := make([]table.Row, len(ports))
	for i, p := range ports {
		rows[i] = table.NewRow(table.RowData{
			columnKeyName:        p.Name,
			columnKeyPath:        p.Path,
			columnKeyDescription: p.Description,
		})
	}

	t := table.New(columns).
		WithRows(rows).
		Focused(true).
		WithPageSize(12).
		WithTargetWidth(80).
		WithBaseStyle(lipgloss.NewStyle().
			Foreground(colors.Text).
			BorderForeground(colors.Surface1).
			Align(lipgloss.Left)).
		HeaderStyle(lipgloss.NewStyle().
			Foreground(colors.Mauve).
			Bold(true)).
		HighlightStyle(lipgloss.NewStyle().
			Foreground(colors.Base).
			Background(colors.Blue).
			Bold(true))

	return &PortsTable{
		table: t,
		ports: ports,
	}
}

func (pt *PortsTable) SetWidth(width int) {
	if width < 40 {
		width = 40
	}
	pt.table = pt.table.WithTargetWidth(width)
}

// Selected returns the port under the cursor, or nil when the table is empty
func (pt *PortsTable) Selected() *serialconn.PortInfo {
	if len(pt.ports) == 0 {
		return nil
	}
	row := pt.table.HighlightedRow()
	path, ok := row.Data[columnKeyPath].(string)
	if !ok {
		return nil
	}
	for i := range pt.ports {
		if pt.ports[i].Path == path {
			return &pt.ports[i]
		}
	}
	return nil
}

func (pt *PortsTable) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	pt.table, cmd = pt.table.Update(msg)
	return cmd
}

func (pt *PortsTable) View() string {
	return pt.table.View()
}
