// Package tracking watches the device location for the courier session.
//
// A Tracker opens high-accuracy watches on a ports.LocationSensor, drops
// cached fixes, hands every fresh position to the session and uploads it to
// the dispatch server through a latest-wins background pusher. Upload
// failures are logged and swallowed.
//
// Terminal sensor failures surface once as *LocationUnavailableError and are
// never retried automatically.
package tracking
