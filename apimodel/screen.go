package apimodel

// TextRequest is the body of POST /api/text.
type TextRequest struct {
	Text      string `json:"text"`
	FontSize  int    `json:"font_size,omitempty"`
	Font      string `json:"font,omitempty"`
	Align     string `json:"align,omitempty"`
	Anchor    string `json:"anchor,omitempty"`
	Invert    bool   `json:"invert"`
	Multiline bool   `json:"multiline"`
}

type ButtonsState struct {
	Up     bool `json:"up"`
	Down   bool `json:"down"`
	Select bool `json:"select"`
	Cancel bool `json:"cancel"`
}

type ScreenState struct {
	Visible   bool    `json:"visible"`
	Contrast  int     `json:"contrast"`
	SPIBus    int     `json:"spi_bus"`
	Animating bool    `json:"animating"`
	MaxFPS    float64 `json:"max_fps"`
	LastText  string  `json:"last_text,omitempty"`
	LockPath  string  `json:"lock_path"`
	Version   string  `json:"version"`
}
