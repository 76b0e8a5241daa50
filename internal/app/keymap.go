package app

// Key binding constants used in handleKey.
const (
	KeyQuit        = "q"
	KeyQuitUpper   = "Q"
	KeyCtrlC       = "ctrl+c"
	KeySpace       = " "
	KeyRecord      = "r"
	KeyRecordUpper = "R"
	KeyTab         = "tab"
	KeyUp          = "up"
	KeyDown        = "down"
	KeyJ           = "j"
	KeyK           = "k"
	KeyEnter       = "enter"
	KeyEsc         = "esc"
	KeyYes         = "y"
	KeyNo          = "n"
	KeyDelete      = "d"
	KeyClearAll    = "x"
)
