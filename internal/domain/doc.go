// Package domain models road and pedestrian counting-sensor exports.
//
// # Data Source
//
// Each counting site exports one or more CSV files per data batch. Files are
// ';'-delimited and encoded in a legacy single-byte charset (ISO-8859-1). The
// header row is not a fixed schema: column names vary between sensor firmware
// versions and embed site metadata in parentheticals.
//
// # Header Conventions
//
// Column names are matched case-insensitively by substring, see [IdentifyColumns]:
//
//	horodate_generated...        → Datetime (event generation timestamp)
//	lane (A, Col de Restefond)   → Lane; the second comma segment is the site name
//	direction_1_2 (1: ...)(2: ...) → Direction; the parentheticals label each way
//	categorySterela_label        → Category (free text, e.g. "vélo", "moto", "u3")
//	category1                    → Category_SIREDO (integer code)
//	speed...                     → Speed, excluding average/validity/delta variants
//	count / comptage             → Count (pedestrian counters, bucketed counts)
//
// Numeric fields use a decimal comma ("52,4"). Unparseable numbers are kept as
// missing rather than rejecting the row.
//
// # Category Unification
//
// Two competing vocabularies coexist: the Sterela text label and the SIREDO
// integer code. [UnifyCategory] folds both into Vélos, Motos, VL or PL. Rows that
// fall into neither are labelled Autre and dropped by [ApplyCategoryPass], so a
// finalized [Dataset] never carries Autre rows.
//
// SIREDO codes:
//
//	1, 12          light vehicles (VL)
//	2–11, 14       heavy vehicles (PL)
//
// # Calendar
//
// Timestamps are converted to a fixed site timezone (Europe/Paris by default)
// before calendar fields are derived. Saturday and Sunday are weekend days (WE),
// every other day is a workday (JO).
package domain
