package component

// Registerable lets a component describe its own registry registration.
type Registerable interface {
	Registration() Registration
}
