package scraper

// Store persists JSON documents under logical names
type Store interface {
	WriteJSON(name string, v interface{}) error
	ReadJSON(name string, v interface{}) error
	Path(name string) string
}
