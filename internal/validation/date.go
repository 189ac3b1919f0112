package validation

import (
	"encoding/json"
	"reflect"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a request timestamp. It accepts RFC 3339 timestamps as well as
// plain YYYY-MM-DD dates, which are read as midnight UTC.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		d.Time = t
		return nil
	}

	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// dateValue lets rules written for time.Time run against Date fields.
func dateValue(v reflect.Value) any {
	if d, ok := v.Interface().(Date); ok {
		return d.Time
	}
	return nil
}
