// Package slotref gives slot identity a typed representation. A customer
// may select either a persisted TimeSlot (real) or a computed window that
// has no row yet (virtual). Keeping the two as a tagged union means only
// the transport edge ever touches the encoded string form.
package slotref

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/develper21/slotify/services/booking-service/internal/model"
)

type Kind int

const (
	Real Kind = iota
	Virtual
)

var ErrMalformed = errors.New("malformed slot id")

const virtualPrefix = "v"

// Ref identifies a slot. For Real refs only SlotID is set; for Virtual
// refs the (appointment, date, start) triple resolves back to schedule +
// duration at booking time.
type Ref struct {
	Kind          Kind
	SlotID        string
	AppointmentID string
	Date          time.Time
	StartMinute   int
}

func ForReal(slotID string) Ref {
	return Ref{Kind: Real, SlotID: slotID}
}

func ForVirtual(appointmentID string, date time.Time, startMinute int) Ref {
	return Ref{
		Kind:          Virtual,
		AppointmentID: appointmentID,
		Date:          model.DateOf(date),
		StartMinute:   startMinute,
	}
}

// Encode renders the wire form: a bare id for real slots,
// "v:<appointment>:<yyyy-mm-dd>:<HH:MM>" for virtual ones.
func (r Ref) Encode() string {
	if r.Kind == Real {
		return r.SlotID
	}
	return strings.Join([]string{
		virtualPrefix,
		r.AppointmentID,
		r.Date.Format("2006-01-02"),
		model.FormatClock(r.StartMinute),
	}, ":")
}

// Parse decodes a wire-form slot id. Anything without the virtual prefix
// is treated as a real slot id; validity of that id is the store's call.
func Parse(s string) (Ref, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Ref{}, ErrMalformed
	}
	if !strings.HasPrefix(s, virtualPrefix+":") {
		if strings.Contains(s, ":") {
			return Ref{}, fmt.Errorf("%w: %q", ErrMalformed, s)
		}
		return ForReal(s), nil
	}

	parts := strings.Split(s, ":")
	// HH:MM carries its own colon, so a virtual id always splits into 5.
	if len(parts) != 5 {
		return Ref{}, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	appointmentID := parts[1]
	if appointmentID == "" {
		return Ref{}, fmt.Errorf("%w: empty appointment id", ErrMalformed)
	}
	date, err := model.ParseDate(parts[2])
	if err != nil {
		return Ref{}, fmt.Errorf("%w: bad date %q", ErrMalformed, parts[2])
	}
	start, err := model.ParseClock(parts[3] + ":" + parts[4])
	if err != nil {
		return Ref{}, fmt.Errorf("%w: bad time %q", ErrMalformed, parts[3]+":"+parts[4])
	}
	return ForVirtual(appointmentID, date, start), nil
}
