package importexport

type defaultKind int

const (
	noDefault defaultKind = iota
	valueDefault
	deferredDefault
)

// Default is what Clean returns for an empty cell. The zero value means no
// default: the empty value itself is returned.
type Default struct {
	kind  defaultKind
	value any
	fn    func() any
}

func NoDefault() Default { return Default{} }

func ValueDefault(v any) Default { return Default{kind: valueDefault, value: v} }

// DeferredDefault computes the default on every use.
func DeferredDefault(fn func() any) Default { return Default{kind: deferredDefault, fn: fn} }

func (d Default) IsSet() bool { return d.kind != noDefault }

func (d Default) resolve() any {
	switch d.kind {
	case valueDefault:
		return d.value
	case deferredDefault:
		return d.fn()
	default:
		return nil
	}
}
