package translator

import (
	"context"
	"time"

	"roster/internal/mbo"
)

// Retire stops a booking from running on or after from. A booking that started before
// from is ended the day before it; any other booking is cancelled.
func Retire(ctx context.Context, client mbo.Client, siteID int, booking *mbo.ClassSchedule, from time.Time) (Call, error) {
	fromDate := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	startDate := time.Date(booking.StartDate.Year(), booking.StartDate.Month(), booking.StartDate.Day(), 0, 0, 0, 0, time.UTC)

	if !booking.StartDate.IsZero() && startDate.Before(fromDate) {
		endDate := fromDate.AddDate(0, 0, -1)
		call := Call{
			Function: mbo.FnEndBooking,
			Params:   map[string]any{"class_id": booking.ID, "end_date": endDate.Format(mbo.DateLayout)},
		}
		res, err := client.EndBooking(ctx, siteID, booking.ID, endDate)
		return finishCall(call, res, err), err
	}

	call := Call{
		Function: mbo.FnCancelBooking,
		Params:   map[string]any{"class_id": booking.ID},
	}
	res, err := client.CancelBooking(ctx, siteID, booking.ID)
	return finishCall(call, res, err), err
}

func finishCall[T any](call Call, res *mbo.Result[T], err error) Call {
	switch {
	case err != nil:
		call.Error = err.Error()
	case !res.Success:
		call.Error = res.Err().Error()
		call.Response = document(res.Raw)
	default:
		call.Success = true
		call.Response = document(res.Raw)
	}
	return call
}
