package dashboard

import (
	"fmt"
	"sync"
	"time"

	"github.com/aceteam-ai/skillcraft/internal/usage"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// TviewDashboard renders the usage totals and the latest log rows. It never
// writes to the log; every refresh re-reads it through refreshFn.
type TviewDashboard struct {
	app       *tview.Application
	refreshFn func() (usage.Snapshot, error)
	interval  time.Duration
	title     string

	mu          sync.Mutex
	data        Data
	autoRefresh bool
	stopChan    chan struct{}
	stopOnce    sync.Once

	totals    *tview.TextView
	rows      *tview.Table
	statusBar *tview.TextView
}

// NewTviewDashboard creates a dashboard that reloads through refreshFn every
// interval while auto-refresh is on.
func NewTviewDashboard(title string, interval time.Duration, refreshFn func() (usage.Snapshot, error)) *TviewDashboard {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &TviewDashboard{
		refreshFn:   refreshFn,
		interval:    interval,
		title:       title,
		autoRefresh: true,
		stopChan:    make(chan struct{}),
	}
}

// Run loads the first snapshot and blocks until the user quits.
func (d *TviewDashboard) Run() error {
	d.app = tview.NewApplication()
	d.buildUI()
	d.load()
	d.updateUI()

	go d.autoRefreshLoop()

	d.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEsc:
			d.stop()
			return nil
		case tcell.KeyRune:
			switch event.Rune() {
			case 'q', 'Q':
				d.stop()
				return nil
			case 'r', 'R':
				go d.refresh()
				return nil
			case 'a', 'A':
				d.mu.Lock()
				d.autoRefresh = !d.autoRefresh
				d.mu.Unlock()
				d.updateStatusBar()
				return nil
			}
		}
		return event
	})

	return d.app.Run()
}

func (d *TviewDashboard) stop() {
	d.stopOnce.Do(func() { close(d.stopChan) })
	d.app.Stop()
}

func (d *TviewDashboard) buildUI() {
	header := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	header.SetText(fmt.Sprintf("\n[::b]%s[::-]", d.title))

	d.totals = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	d.totals.SetBorder(true).SetTitle(" Totals ")

	d.rows = tview.NewTable().
		SetBorders(false).
		SetSelectable(false, false).
		SetFixed(1, 0)
	d.rows.SetBorder(true).SetTitle(fmt.Sprintf(" Últimas %d llamadas ", RecentRows))

	d.statusBar = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)

	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(header, 3, 0, false).
		AddItem(d.totals, 3, 0, false).
		AddItem(d.rows, 0, 1, false).
		AddItem(d.statusBar, 1, 0, false)

	d.app.SetRoot(root, true)
}

// load pulls a fresh snapshot into d.data.
func (d *TviewDashboard) load() {
	snap, err := d.refreshFn()

	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		d.data.Err = err
		return
	}
	d.data = Data{Snapshot: snap, LastUpdate: time.Now()}
}

func (d *TviewDashboard) updateUI() {
	d.mu.Lock()
	data := d.data
	d.mu.Unlock()

	d.totals.SetText(TotalsLine(data.Snapshot))

	d.rows.Clear()
	for col, name := range TableHeader {
		d.rows.SetCell(0, col, tview.NewTableCell("[::b]"+name).
			SetSelectable(false).
			SetExpansion(1))
	}
	for i, cells := range TableRows(data.Snapshot.Recent) {
		for col, text := range cells {
			align := tview.AlignRight
			if col == 0 {
				align = tview.AlignLeft
			}
			d.rows.SetCell(i+1, col, tview.NewTableCell(text).SetAlign(align).SetExpansion(1))
		}
	}

	d.updateStatusBar()
}

func (d *TviewDashboard) updateStatusBar() {
	d.mu.Lock()
	data := d.data
	auto := d.autoRefresh
	d.mu.Unlock()

	d.statusBar.SetText(StatusLine(data, auto))
}

func (d *TviewDashboard) refresh() {
	d.load()
	d.app.QueueUpdateDraw(func() {
		d.updateUI()
	})
}

func (d *TviewDashboard) autoRefreshLoop() {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stopChan:
			return
		case <-ticker.C:
			d.mu.Lock()
			auto := d.autoRefresh
			d.mu.Unlock()
			if auto {
				d.refresh()
			}
		}
	}
}
