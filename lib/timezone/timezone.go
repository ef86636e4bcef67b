package timezone

import "time"

// Location is Indian Standard Time, which both the portal and the audit
// log use regardless of where the server runs.
var Location = time.FixedZone("IST", 5*60*60+30*60)

func Now() time.Time {
	return time.Now().In(Location)
}

// Format renders t in IST using the layout the audit log and log handler
// share.
func Format(t time.Time) string {
	return t.In(Location).Format("2006-01-02 15:04:05 MST")
}
