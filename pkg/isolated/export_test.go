package isolated

// CloseStore tears the coordination store down ahead of Stop
func (e *Engine) CloseStore() error {
	return e.store.Close()
}
