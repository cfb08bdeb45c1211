package event

import (
	"fmt"

	"calsuite/internal/calerr"
	"calsuite/internal/date"
	"calsuite/internal/model"
)

// Property names an editable field.
type Property int

const (
	PropSubject Property = iota + 1
	PropStart
	PropEnd
	PropDescription
	PropLocation
	PropStatus
)

var propertyNames = map[Property]string{
	PropSubject:     "subject",
	PropStart:       "start",
	PropEnd:         "end",
	PropDescription: "description",
	PropLocation:    "location",
	PropStatus:      "status",
}

func (p Property) String() string {
	if name, ok := propertyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Property(%d)", int(p))
}

// ParseProperty maps a textual property name to its Property.
func ParseProperty(s string) (Property, error) {
	for p, name := range propertyNames {
		if name == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", calerr.ErrInvalidProperty, s)
}

// Edit is one typed property change. Build it with Subject, Start, End,
// Description, Location or Status; the zero Edit is invalid.
type Edit struct {
	prop   Property
	text   string
	at     date.DateTime
	status model.Visibility
}

func Subject(s string) Edit          { return Edit{prop: PropSubject, text: s} }
func Start(at date.DateTime) Edit    { return Edit{prop: PropStart, at: at} }
func End(at date.DateTime) Edit      { return Edit{prop: PropEnd, at: at} }
func Description(s string) Edit      { return Edit{prop: PropDescription, text: s} }
func Location(s string) Edit         { return Edit{prop: PropLocation, text: s} }
func Status(v model.Visibility) Edit { return Edit{prop: PropStatus, status: v} }
func (e Edit) Property() Property    { return e.prop }

// ParseEdit builds an Edit from a property name and its textual value.
// start and end take a date-time, status takes public or private.
func ParseEdit(prop, value string) (Edit, error) {
	p, err := ParseProperty(prop)
	if err != nil {
		return Edit{}, err
	}
	switch p {
	case PropStart, PropEnd:
		at, err := date.ParseDateTime(value)
		if err != nil {
			return Edit{}, err
		}
		if p == PropStart {
			return Start(at), nil
		}
		return End(at), nil
	case PropStatus:
		v, err := model.ParseVisibility(value)
		if err != nil {
			return Edit{}, err
		}
		return Status(v), nil
	case PropSubject:
		return Subject(value), nil
	case PropDescription:
		return Description(value), nil
	default:
		return Location(value), nil
	}
}

func (e Edit) String() string {
	switch e.prop {
	case PropStart, PropEnd:
		return e.prop.String() + "=" + e.at.String()
	case PropStatus:
		return e.prop.String() + "=" + e.status.String()
	default:
		return e.prop.String() + "=" + e.text
	}
}

// applyOccurrence edits one concrete occurrence. start and end replace the
// full date-time.
func (e Edit) applyOccurrence(o model.Occurrence) (model.Occurrence, error) {
	switch e.prop {
	case PropSubject:
		o.Subject = e.text
	case PropStart:
		o.Start = e.at
		o.AllDay = false
	case PropEnd:
		o.End = e.at
		o.AllDay = false
	case PropDescription:
		o.Description = e.text
	case PropLocation:
		o.Location = e.text
	case PropStatus:
		o.Status = e.status
	default:
		return model.Occurrence{}, fmt.Errorf("%w: %s", calerr.ErrInvalidProperty, e.prop)
	}
	if o.End.Before(o.Start) {
		return model.Occurrence{}, fmt.Errorf("%w: end %s before start %s", calerr.ErrInvalidRange, o.End, o.Start)
	}
	return o, nil
}

// applyTemplate edits a series template. start and end only take the time
// of day, so occurrence dates stay on the weekday pattern.
func (e Edit) applyTemplate(t Template) (Template, error) {
	switch e.prop {
	case PropSubject:
		t.Subject = e.text
	case PropStart:
		t.Start = e.at.Clock
		t.AllDay = false
	case PropEnd:
		t.End = e.at.Clock
		t.AllDay = false
	case PropDescription:
		t.Description = e.text
	case PropLocation:
		t.Location = e.text
	case PropStatus:
		t.Status = e.status
	default:
		return Template{}, fmt.Errorf("%w: %s", calerr.ErrInvalidProperty, e.prop)
	}
	if err := t.validate(); err != nil {
		return Template{}, err
	}
	return t, nil
}
