package tracker

// HistoryCapacity bounds the trailing activity log.
const HistoryCapacity = 50

// AppendHistory appends e and drops the oldest entries beyond capacity,
// keeping the rest in chronological order.
func AppendHistory(history []HistoryEntry, e HistoryEntry) []HistoryEntry {
	history = append(history, e)
	if over := len(history) - HistoryCapacity; over > 0 {
		trimmed := make([]HistoryEntry, HistoryCapacity)
		copy(trimmed, history[over:])
		return trimmed
	}
	return history
}
