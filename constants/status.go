package constants

// ReadStatus is the lifecycle state of an OCR read operation.
type ReadStatus string

// Values match the wire strings of the Azure Read API.
const (
	ReadNotStarted ReadStatus = "notStarted"
	ReadRunning    ReadStatus = "running"
	ReadSucceeded  ReadStatus = "succeeded"
	ReadFailed     ReadStatus = "failed"
)

// Terminal reports whether no further polling is needed.
func (s ReadStatus) Terminal() bool {
	return s == ReadSucceeded || s == ReadFailed
}
