package models

import "strconv"

// LegacyRecord is the wire shape older dashboard and list views consume.
// Those views never agreed on field names (some filter on "company", some
// on "companyName", some on "position" vs "title"), so the adapter emits
// every variant from the one canonical Application. New code should read
// the Application struct directly.
type LegacyRecord map[string]any

// ToLegacy renders an Application with all historical field aliases
// populated identically.
func ToLegacy(app *Application) LegacyRecord {
	rec := LegacyRecord{
		"id":     app.ID,
		"status": app.Status,
		"notes":  app.Notes,
		"source": app.Source,

		"company":     app.Company,
		"companyName": app.Company,

		"title":    app.JobTitle,
		"jobTitle": app.JobTitle,
		"position": app.JobTitle,

		"location": app.Location,

		"url":    app.URL,
		"jobUrl": app.URL,

		"description": app.Description,

		"createdAt": app.CreatedAt,
		"updatedAt": app.UpdatedAt,
	}
	if app.AppliedAt != nil {
		rec["appliedAt"] = *app.AppliedAt
	}
	return rec
}

// MatchesCompany reports whether the record's company equals name under
// either alias. Both aliases are written by ToLegacy, so this holds for
// any record produced by the adapter; it also tolerates records written
// by older clients that only set one of them.
func (r LegacyRecord) MatchesCompany(name string) bool {
	if v, ok := r["company"].(string); ok && v == name {
		return true
	}
	if v, ok := r["companyName"].(string); ok && v == name {
		return true
	}
	return false
}

// LegacyID extracts the record identifier regardless of how the producer
// encoded it (uint from the adapter, float64 from decoded JSON, or a
// stringified number from very old clients).
func LegacyID(rec LegacyRecord) (uint, bool) {
	switch v := rec["id"].(type) {
	case uint:
		return v, true
	case int:
		return uint(v), true
	case int64:
		return uint(v), true
	case float64:
		return uint(v), true
	case string:
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, false
		}
		return uint(n), true
	}
	return 0, false
}
