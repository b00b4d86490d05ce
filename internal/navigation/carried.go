// internal/navigation/carried.go
package navigation

import "go.uber.org/zap"

// CaptureValue stores value under key, replacing whatever was there. An empty
// value is stored too, so a later ConsumeValue can never see an older
// capture.
func (t *Tracker) CaptureValue(key, value string) {
	if prev, ok := t.values[key]; ok && prev != value {
		t.logger.Debug("Overwriting carried value.", zap.String("key", key))
	}
	t.values[key] = value
}

// ConsumeValue returns the value captured under key. It does not clear it;
// the caller decides when the value stops being relevant.
func (t *Tracker) ConsumeValue(key string) (string, bool) {
	v, ok := t.values[key]
	return v, ok
}

// ClearValue forgets key.
func (t *Tracker) ClearValue(key string) {
	delete(t.values, key)
}

// ResetValues forgets every carried value, typically at the start of a workflow.
func (t *Tracker) ResetValues() {
	clear(t.values)
}
