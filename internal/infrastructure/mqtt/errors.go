package mqtt

import "errors"

// Errors returned by the broker client. Check with errors.Is.
var (
	ErrConnectionFailed = errors.New("mqtt: cannot reach broker")
	ErrNotConnected     = errors.New("mqtt: broker session down")
	ErrPublishFailed    = errors.New("mqtt: publish rejected")
	ErrSubscribeFailed  = errors.New("mqtt: subscribe rejected")
	ErrInvalidTopic     = errors.New("mqtt: empty topic")
	ErrInvalidQoS       = errors.New("mqtt: qos must be 0, 1 or 2")
)
