package ingest

import (
	"context"
	"database/sql"
	"time"

	"dvhc-api/internal/logger"
)

// Zone：刷新任务使用的时区
const Zone = "Asia/Ho_Chi_Minh"

// nextMondayAt：计算 now 之后最近一个周一 hour 点
// 约束：当天即为周一且已过该时刻时顺延一周
func nextMondayAt(now time.Time, loc *time.Location, hour int) time.Time {
	now = now.In(loc)
	for i := 0; i <= 7; i++ {
		d := now.AddDate(0, 0, i)
		if d.Weekday() == time.Monday {
			t := time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, loc)
			if t.After(now) {
				return t
			}
		}
	}
	d := now.AddDate(0, 0, 7)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, loc)
}

// StartWeekly：每周一 hour 点（越南时间）重新导入 src，成功后调用 onDone
// 背景：错误只记录日志，任务继续调度；ctx 取消后协程退出
func StartWeekly(ctx context.Context, db *sql.DB, src string, hour, batchSize int, onDone func(Result)) {
	l := logger.L()
	loc, err := time.LoadLocation(Zone)
	if err != nil {
		loc = time.FixedZone("ICT", 7*3600)
	}
	if hour < 0 || hour > 23 {
		hour = 3
	}
	go func() {
		next := nextMondayAt(time.Now(), loc, hour)
		for {
			l.Info("ingest_scheduled", "next", next)
			t := time.NewTimer(time.Until(next))
			select {
			case <-ctx.Done():
				t.Stop()
				return
			case <-t.C:
			}
			res, err := Run(ctx, nil, db, src, batchSize)
			if err != nil {
				l.Error("ingest_error", "err", err)
			} else if onDone != nil {
				onDone(res)
			}
			next = nextMondayAt(time.Now(), loc, hour)
		}
	}()
}
