package logging

import (
	"sync"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/rs/zerolog"
)

type (
	// Event is a logiface.Event backed by a zerolog.Event.
	Event struct {
		//lint:ignore U1000 embedded for it's methods
		unimplementedEvent

		Z   *zerolog.Event
		lvl logiface.Level
		msg string
	}

	// ZerologLogger implements the logiface writer and event factory, on top
	// of a zerolog.Logger.
	ZerologLogger struct {
		Z zerolog.Logger
	}

	//lint:ignore U1000 used to embed without exporting
	unimplementedEvent = logiface.UnimplementedEvent
)

var (
	// compile time assertions

	_ logiface.Event                 = (*Event)(nil)
	_ logiface.EventFactory[*Event]  = (*ZerologLogger)(nil)
	_ logiface.Writer[*Event]        = (*ZerologLogger)(nil)
	_ logiface.EventReleaser[*Event] = (*ZerologLogger)(nil)

	eventPool = sync.Pool{New: func() any { return new(Event) }}
)

// WithZerolog configures a logiface logger to write via z.
func WithZerolog(z zerolog.Logger) logiface.Option[*Event] {
	l := &ZerologLogger{Z: z}
	return logiface.WithOptions[*Event](
		logiface.WithEventFactory[*Event](l),
		logiface.WithWriter[*Event](l),
		logiface.WithEventReleaser[*Event](l),
	)
}

func (x *Event) Level() logiface.Level {
	if x != nil {
		return x.lvl
	}
	return logiface.LevelDisabled
}

func (x *Event) AddField(key string, val any) {
	x.Z.Interface(key, val)
}

func (x *Event) AddMessage(msg string) bool {
	x.msg = msg
	return true
}

func (x *Event) AddError(err error) bool {
	x.Z.Err(err)
	return true
}

func (x *Event) AddString(key string, val string) bool {
	x.Z.Str(key, val)
	return true
}

func (x *Event) AddInt(key string, val int) bool {
	x.Z.Int(key, val)
	return true
}

func (x *Event) AddInt64(key string, val int64) bool {
	x.Z.Int64(key, val)
	return true
}

func (x *Event) AddUint64(key string, val uint64) bool {
	x.Z.Uint64(key, val)
	return true
}

func (x *Event) AddFloat64(key string, val float64) bool {
	x.Z.Float64(key, val)
	return true
}

func (x *Event) AddBool(key string, val bool) bool {
	x.Z.Bool(key, val)
	return true
}

func (x *Event) AddDuration(key string, val time.Duration) bool {
	x.Z.Dur(key, val)
	return true
}

func (x *Event) AddTime(key string, val time.Time) bool {
	x.Z.Time(key, val)
	return true
}

// NewEvent maps logiface levels onto zerolog levels. The levels more severe
// than error all map to zerolog's fatal level, but never exit the process.
func (x *ZerologLogger) NewEvent(level logiface.Level) *Event {
	if !level.Enabled() {
		return nil
	}
	e := eventPool.Get().(*Event)
	e.lvl = level
	e.Z = x.Z.WithLevel(zerologLevel(level))
	return e
}

func (x *ZerologLogger) Write(event *Event) error {
	event.Z.Msg(event.msg)
	return nil
}

func (x *ZerologLogger) ReleaseEvent(event *Event) {
	if event == nil {
		return
	}
	*event = Event{}
	eventPool.Put(event)
}

func zerologLevel(level logiface.Level) zerolog.Level {
	switch level {
	case logiface.LevelTrace:
		return zerolog.TraceLevel
	case logiface.LevelDebug:
		return zerolog.DebugLevel
	case logiface.LevelInformational:
		return zerolog.InfoLevel
	case logiface.LevelNotice, logiface.LevelWarning:
		return zerolog.WarnLevel
	case logiface.LevelError:
		return zerolog.ErrorLevel
	case logiface.LevelCritical, logiface.LevelAlert, logiface.LevelEmergency:
		return zerolog.FatalLevel
	default:
		// >= 9, translate to numeric levels in zerolog
		// (9 -> -2, 10 -> -3, etc)
		return zerolog.Level(7 - level)
	}
}
