package influxdb

import "errors"

// Errors returned by the occupancy history client. Check with errors.Is.
var (
	ErrDisabled         = errors.New("influxdb: history disabled")
	ErrConnectionFailed = errors.New("influxdb: server unreachable")
	ErrNotConnected     = errors.New("influxdb: client closed")
	ErrUnhealthy        = errors.New("influxdb: server reports unhealthy")
)
