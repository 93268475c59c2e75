// Package strategy holds the three analysis stages. Each engine keeps its own rolling
// bar windows and communicates with the others only through state.Analysis.
package strategy

import "KillZoneSentinel/internal/model"

// window is a bounded, append-only bar buffer.
type window struct {
	limit int
	bars  []model.Bar
}

func newWindow(limit int) *window {
	return &window{limit: limit}
}

func (w *window) push(b model.Bar) {
	w.bars = append(w.bars, b)
	if w.limit > 0 && len(w.bars) > w.limit {
		// copy down so the backing array does not grow without bound
		n := copy(w.bars, w.bars[len(w.bars)-w.limit:])
		w.bars = w.bars[:n]
	}
}

func (w *window) len() int { return len(w.bars) }

func (w *window) last() (model.Bar, bool) {
	if len(w.bars) == 0 {
		return model.Bar{}, false
	}
	return w.bars[len(w.bars)-1], true
}

// windows keeps one buffer per timeframe.
type windows struct {
	limit int
	byTF  map[string]*window
}

func newWindows(limit int) *windows {
	return &windows{limit: limit, byTF: make(map[string]*window)}
}

func (ws *windows) push(b model.Bar) *window {
	w, ok := ws.byTF[b.Timeframe]
	if !ok {
		w = newWindow(ws.limit)
		ws.byTF[b.Timeframe] = w
	}
	w.push(b)
	return w
}

func (ws *windows) get(tf string) *window {
	return ws.byTF[tf]
}

func containsTF(list []string, tf string) bool {
	for _, v := range list {
		if v == tf {
			return true
		}
	}
	return false
}
