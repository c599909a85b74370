package insight

import "time"

// BucketOf maps a timestamp onto its calendar bucket for the granularity.
// Weeks use ISO numbering (Monday-based, year of the week's Thursday) so
// buckets stay unambiguous across year boundaries.
func BucketOf(t time.Time, g Granularity) (PeriodBucket, error) {
	switch g {
	case GranularityDay:
		return PeriodBucket{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}, nil
	case GranularityWeek:
		year, week := t.ISOWeek()
		return PeriodBucket{Year: year, Week: week}, nil
	case GranularityMonth:
		return PeriodBucket{Year: t.Year(), Month: int(t.Month())}, nil
	case GranularityQuarter:
		return PeriodBucket{Year: t.Year(), Quarter: (int(t.Month()) + 2) / 3}, nil
	case GranularityYear:
		return PeriodBucket{Year: t.Year()}, nil
	default:
		return PeriodBucket{}, ErrInvalidGranularity
	}
}

// compareBuckets orders buckets ascending in time. Within one granularity the
// unused fields are zero on both sides, so a field-by-field comparison is
// total.
func compareBuckets(a, b PeriodBucket) int {
	for _, pair := range [...][2]int{
		{a.Year, b.Year},
		{a.Quarter, b.Quarter},
		{a.Month, b.Month},
		{a.Week, b.Week},
		{a.Day, b.Day},
	} {
		switch {
		case pair[0] < pair[1]:
			return -1
		case pair[0] > pair[1]:
			return 1
		}
	}
	return 0
}
