package conflict

import (
	"reposync/internal/domain/mapper"
	"reposync/internal/domain/remote"
)

// HasLocalChanges сообщает, менялась ли модель после последней синхронизации.
// Никогда не синхронизированная модель считается измененной.
// Изменение в тот же момент, что и синхронизация, изменением не считается.
func HasLocalChanges(st mapper.SyncState) bool {
	if st.SyncedAt.IsZero() {
		return true
	}
	if st.UpdatedAt.IsZero() {
		return false
	}
	return st.UpdatedAt.After(st.SyncedAt)
}

// HasConflict сообщает о конкурирующих изменениях локальной модели и входящей версии записи
func HasConflict(m mapper.Model, _ remote.Record, version string) bool {
	st := m.SyncState()
	if !HasLocalChanges(st) {
		return false
	}
	if st.Version != "" && st.Version == version {
		return false
	}
	return true
}
