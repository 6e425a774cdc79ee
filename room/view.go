// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package room

import (
	"time"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/predictroom/models"
)

// View decorates a room with per-prediction status and countdown as of now.
func View(r models.Room, now time.Time) models.RoomView {
	views := make([]models.PredictionView, 0, len(r.Predictions))
	for _, p := range r.Predictions {
		v := models.PredictionView{Prediction: p, Status: Status(p, now)}
		switch v.Status {
		case models.StatusOpen:
			v.TimeLeft = humanize.RelTime(now, p.Deadline, "left", "ago")
		case models.StatusClosed:
			v.TimeLeft = "expired"
		}
		views = append(views, v)
	}
	return models.RoomView{Room: r, Predictions: views}
}
