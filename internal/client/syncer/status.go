package syncer

import (
	"errors"
	"fmt"

	"github.com/atinyakov/GophTally/internal/client/transfer"
	domainerrors "github.com/atinyakov/GophTally/internal/errors"
)

type statusKey int

const (
	statusSynced statusKey = iota
	statusSyncStarted
	statusSyncStopped
	statusSyncFailed
	statusReset
	statusFileSaved
	statusFileSaveFailed
	statusFileLoaded
	statusFileLoadFailed
	statusInvalidFormat
	statusNoValidCounters
)

var statusText = map[string]map[statusKey]string{
	domainerrors.LocaleJA: {
		statusSynced:          "データを同期しました",
		statusSyncStarted:     "リアルタイム同期を開始しました",
		statusSyncStopped:     "同期を無効化しました",
		statusSyncFailed:      "同期に失敗しました: %s",
		statusReset:           "データをリセットしました",
		statusFileSaved:       "ファイルを保存しました",
		statusFileSaveFailed:  "保存に失敗しました: %s",
		statusFileLoaded:      "ファイルを読み込みました",
		statusFileLoadFailed:  "ファイルの読み込みに失敗しました: %s",
		statusInvalidFormat:   "無効なファイル形式です",
		statusNoValidCounters: "有効なカウンターデータが見つかりません",
	},
	domainerrors.LocaleEN: {
		statusSynced:          "Data synced",
		statusSyncStarted:     "Live sync started",
		statusSyncStopped:     "Sync disabled",
		statusSyncFailed:      "Sync failed: %s",
		statusReset:           "Data reset",
		statusFileSaved:       "File saved",
		statusFileSaveFailed:  "Save failed: %s",
		statusFileLoaded:      "File loaded",
		statusFileLoadFailed:  "Failed to load file: %s",
		statusInvalidFormat:   "Invalid file format",
		statusNoValidCounters: "No valid counter data found",
	},
}

func (c *Coordinator) status(key statusKey, args ...any) string {
	table, ok := statusText[c.locale]
	if !ok {
		table = statusText[domainerrors.LocaleJA]
	}
	if len(args) == 0 {
		return table[key]
	}
	return fmt.Sprintf(table[key], args...)
}

// describe turns err into user-facing text.
func (c *Coordinator) describe(err error) string {
	switch {
	case errors.Is(err, transfer.ErrInvalidFormat):
		return c.status(statusInvalidFormat)
	case errors.Is(err, transfer.ErrNoValidCounters):
		return c.status(statusNoValidCounters)
	}
	return domainerrors.Message(c.locale, err)
}
