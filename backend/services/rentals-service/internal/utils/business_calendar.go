package utils

import (
	"time"

	cal "github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
)

// create once at init
var usFed = cal.NewBusinessCalendar()

func init() {
	usFed.AddHoliday(
		us.NewYear,
		us.MlkDay,
		us.PresidentsDay,
		us.MemorialDay,
		us.Juneteenth,
		us.IndependenceDay,
		us.LaborDay,
		us.ColumbusDay,
		us.VeteransDay,
		us.ThanksgivingDay,
		us.ChristmasDay,
	)
}

func IsUSFedHoliday(t time.Time) bool {
	actual, observed, _ := usFed.IsHoliday(t)
	return actual || observed
}

// NextBusinessDay returns day itself when it is a workday, otherwise the
// following workday. Weekends and federal holidays are skipped.
func NextBusinessDay(day time.Time) time.Time {
	d := dateOnly(day)
	for i := 0; i < 14 && !usFed.IsWorkday(d); i++ {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// NextRentDue is the next date on or after `from` falling on dueDay of a
// month inside [start, end], rolled forward to a business day. nominal is
// the unrolled date, which names the rent period. ok is false when the
// lease has no remaining due dates.
func NextRentDue(from, start, end time.Time, dueDay int) (due, nominal time.Time, ok bool) {
	from = dateOnly(from)
	if from.Before(dateOnly(start)) {
		from = dateOnly(start)
	}
	y, m, _ := from.Date()
	for i := 0; i < 2; i++ {
		nominal = time.Date(y, m+time.Month(i), dueDay, 0, 0, 0, 0, time.UTC)
		if nominal.After(dateOnly(end)) {
			return time.Time{}, time.Time{}, false
		}
		due = NextBusinessDay(nominal)
		if !due.Before(from) {
			return due, nominal, true
		}
	}
	return time.Time{}, time.Time{}, false
}

// RentPeriod is the YYYY-MM a due date belongs to.
func RentPeriod(nominalDue time.Time) string {
	return nominalDue.Format("2006-01")
}

func dateOnly(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
