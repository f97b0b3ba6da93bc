package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// deviceMenu renders a device list into a submenu. systray cannot remove
// items, so slots are created on demand and hidden when unused.
type deviceMenu struct {
	parent   *systray.MenuItem
	onSelect func(id string)

	mu    sync.Mutex
	slots []*systray.MenuItem
	ids   []string
}

func newDeviceMenu(parent *systray.MenuItem, onSelect func(id string)) *deviceMenu {
	return &deviceMenu{parent: parent, onSelect: onSelect}
}

func (d *deviceMenu) render(entries []deviceEntry) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for len(d.slots) < len(entries) {
		item := d.parent.AddSubMenuItem("", "")
		d.slots = append(d.slots, item)
		d.ids = append(d.ids, "")
		go d.watch(len(d.slots)-1, item)
	}

	for i, item := range d.slots {
		if i >= len(entries) {
			d.ids[i] = ""
			item.Hide()
			continue
		}
		e := entries[i]
		d.ids[i] = e.ID
		item.SetTitle(e.Title)
		if e.Checked {
			item.Check()
		} else {
			item.Uncheck()
		}
		item.Show()
	}

	if len(entries) == 0 {
		d.parent.Disable()
	} else {
		d.parent.Enable()
	}
}

func (d *deviceMenu) watch(slot int, item *systray.MenuItem) {
	for range item.ClickedCh {
		d.mu.Lock()
		id := d.ids[slot]
		d.mu.Unlock()
		if id != "" {
			d.onSelect(id)
		}
	}
}
