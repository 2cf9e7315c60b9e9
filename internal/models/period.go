package models

import "sort"

// PeriodInfo describes one period on a subject's daily grid: its
// display label and wall-clock time range.
type PeriodInfo struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Time      string `json:"time"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// mathPeriodInfo is the 8-period grid of 55-minute blocks with a
// ten-minute break after the fourth period.
var mathPeriodInfo = map[string]PeriodInfo{
	"1": {ID: "1", Label: "1교시", Time: "14:30~15:25", StartTime: "14:30", EndTime: "15:25"},
	"2": {ID: "2", Label: "2교시", Time: "15:25~16:20", StartTime: "15:25", EndTime: "16:20"},
	"3": {ID: "3", Label: "3교시", Time: "16:20~17:15", StartTime: "16:20", EndTime: "17:15"},
	"4": {ID: "4", Label: "4교시", Time: "17:15~18:10", StartTime: "17:15", EndTime: "18:10"},
	"5": {ID: "5", Label: "5교시", Time: "18:20~19:15", StartTime: "18:20", EndTime: "19:15"},
	"6": {ID: "6", Label: "6교시", Time: "19:15~20:10", StartTime: "19:15", EndTime: "20:10"},
	"7": {ID: "7", Label: "7교시", Time: "20:10~21:05", StartTime: "20:10", EndTime: "21:05"},
	"8": {ID: "8", Label: "8교시", Time: "21:05~22:00", StartTime: "21:05", EndTime: "22:00"},
}

// englishPeriodInfo is the 10-period grid of 40-minute blocks.
var englishPeriodInfo = map[string]PeriodInfo{
	"1":  {ID: "1", Label: "1교시", Time: "14:20~15:00", StartTime: "14:20", EndTime: "15:00"},
	"2":  {ID: "2", Label: "2교시", Time: "15:00~15:40", StartTime: "15:00", EndTime: "15:40"},
	"3":  {ID: "3", Label: "3교시", Time: "15:40~16:20", StartTime: "15:40", EndTime: "16:20"},
	"4":  {ID: "4", Label: "4교시", Time: "16:20~17:00", StartTime: "16:20", EndTime: "17:00"},
	"5":  {ID: "5", Label: "5교시", Time: "17:00~17:40", StartTime: "17:00", EndTime: "17:40"},
	"6":  {ID: "6", Label: "6교시", Time: "17:40~18:20", StartTime: "17:40", EndTime: "18:20"},
	"7":  {ID: "7", Label: "7교시", Time: "18:20~19:15", StartTime: "18:20", EndTime: "19:15"},
	"8":  {ID: "8", Label: "8교시", Time: "19:15~20:10", StartTime: "19:15", EndTime: "20:10"},
	"9":  {ID: "9", Label: "9교시", Time: "20:10~21:05", StartTime: "20:10", EndTime: "21:05"},
	"10": {ID: "10", Label: "10교시", Time: "21:05~22:00", StartTime: "21:05", EndTime: "22:00"},
}

// periodInfoTable selects the subject's grid. Subjects without a grid
// of their own run on the math timetable.
func periodInfoTable(subject Subject) map[string]PeriodInfo {
	if subject == SubjectEnglish {
		return englishPeriodInfo
	}
	return mathPeriodInfo
}

// PeriodInfoFor looks up one period's metadata on the subject's grid.
// Legacy period identifiers are normalized first.
func PeriodInfoFor(subject Subject, periodID string) (PeriodInfo, bool) {
	info, ok := periodInfoTable(subject)[NormalizePeriodID(periodID)]
	return info, ok
}

// PeriodTable returns the subject's full period grid in period order.
func PeriodTable(subject Subject) []PeriodInfo {
	table := periodInfoTable(subject)
	out := make([]PeriodInfo, 0, len(table))
	for _, info := range table {
		out = append(out, info)
	}
	sort.SliceStable(out, func(i, j int) bool {
		an, as := periodOrder(out[i].ID)
		bn, bs := periodOrder(out[j].ID)
		if an != bn {
			return an < bn
		}
		return as < bs
	})
	return out
}

// PeriodLabel returns the period's display label, falling back to
// "N교시" for periods outside the known grid.
func PeriodLabel(subject Subject, periodID string) string {
	if info, ok := PeriodInfoFor(subject, periodID); ok {
		return info.Label
	}
	return NormalizePeriodID(periodID) + "교시"
}
