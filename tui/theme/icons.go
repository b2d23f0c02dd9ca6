package theme

import "os"

// Nerd Font icons
const (
	nerdIconSuccess = "󰄬" // md-check (U+F012C)
	nerdIconError   = "" // cod-error (U+EA87)
	nerdIconWarning = "" // fa-warning (U+F071)
	nerdIconInfo    = "󰋼" // md-information (U+F02FC)
	nerdIconRunning = "" // fa-refresh (U+F021)
	nerdIconStopped = "󰏧" // md-pause_octagon (U+F03E7)
	nerdIconRecord  = "󰑊" // md-record (U+F044A)
	nerdIconArrow   = "󰁔" // md-arrow_right (U+F0054)
	nerdIconBullet  = "" // oct-dot_fill (U+F444)
	nerdIconFilter  = "󱣬" // md-filter_check (U+F18EC)
	nerdIconGroup   = "󰉋" // md-folder (U+F024B)
	nerdIconProcess = "󰘔" // md-application (U+F0614)
	nerdIconTimer   = "󰔟" // md-timer_sand (U+F051F)
	nerdIconAnomaly = "󰀦" // md-alert (U+F0026)
)

// ASCII fallbacks
const (
	asciiIconSuccess = "✓"
	asciiIconError   = "✗"
	asciiIconWarning = "⚠"
	asciiIconInfo    = "ℹ"
	asciiIconRunning = "◐"
	asciiIconStopped = "■"
	asciiIconRecord  = "●"
	asciiIconArrow   = "→"
	asciiIconBullet  = "•"
	asciiIconFilter  = "⌕"
	asciiIconGroup   = "▣"
	asciiIconProcess = "▢"
	asciiIconTimer   = "⧗"
	asciiIconAnomaly = "!"
)

// Icons selected at init from PROCTRACK_ICONS.
var (
	IconSuccess string
	IconError   string
	IconWarning string
	IconInfo    string
	IconRunning string
	IconStopped string
	IconRecord  string
	IconArrow   string
	IconBullet  string
	IconFilter  string
	IconGroup   string
	IconProcess string
	IconTimer   string
	IconAnomaly string
)

func init() {
	SetASCIIIcons(os.Getenv("PROCTRACK_ICONS") == "ascii")
}

// SetASCIIIcons switches between the Nerd Font set and plain fallbacks.
func SetASCIIIcons(ascii bool) {
	if ascii {
		IconSuccess = asciiIconSuccess
		IconError = asciiIconError
		IconWarning = asciiIconWarning
		IconInfo = asciiIconInfo
		IconRunning = asciiIconRunning
		IconStopped = asciiIconStopped
		IconRecord = asciiIconRecord
		IconArrow = asciiIconArrow
		IconBullet = asciiIconBullet
		IconFilter = asciiIconFilter
		IconGroup = asciiIconGroup
		IconProcess = asciiIconProcess
		IconTimer = asciiIconTimer
		IconAnomaly = asciiIconAnomaly
		return
	}
	IconSuccess = nerdIconSuccess
	IconError = nerdIconError
	IconWarning = nerdIconWarning
	IconInfo = nerdIconInfo
	IconRunning = nerdIconRunning
	IconStopped = nerdIconStopped
	IconRecord = nerdIconRecord
	IconArrow = nerdIconArrow
	IconBullet = nerdIconBullet
	IconFilter = nerdIconFilter
	IconGroup = nerdIconGroup
	IconProcess = nerdIconProcess
	IconTimer = nerdIconTimer
	IconAnomaly = nerdIconAnomaly
}
