package future

var (
	// Inline runs work in the calling goroutine and returns settled futures.
	Inline Factory = inlineFactory{}
	// Goroutine runs each piece of work on its own goroutine.
	Goroutine Factory = goroutineFactory{}
)

type inlineFactory struct{}

func (inlineFactory) Resolve(value any) Future { return Resolved(value) }

func (inlineFactory) Reject(err error) Future { return Rejected(err) }

func (inlineFactory) Start(fn func() (any, error)) Future {
	p := NewPromise()
	v, err := call(fn)
	if err != nil {
		p.Reject(err)
	} else {
		p.Resolve(v)
	}
	return p
}

type goroutineFactory struct{}

func (goroutineFactory) Resolve(value any) Future { return Resolved(value) }

func (goroutineFactory) Reject(err error) Future { return Rejected(err) }

func (goroutineFactory) Start(fn func() (any, error)) Future {
	p := NewPromise()
	go func() {
		v, err := call(fn)
		if err != nil {
			p.Reject(err)
			return
		}
		p.Resolve(v)
	}()
	return p
}

// ByName returns the factory registered under name: "inline" or "goroutine".
func ByName(name string) (Factory, bool) {
	switch name {
	case "", "inline":
		return Inline, true
	case "goroutine":
		return Goroutine, true
	default:
		return nil, false
	}
}
