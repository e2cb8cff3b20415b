package iris

// ImageOrientation encodes one of four cardinal rotations as the exact
// half-precision-float bit patterns specified for associated-image
// orientation, fixed values rather than a computed IEEE 754 half-float so
// every writer and reader agrees byte-for-byte.
type ImageOrientation uint16

const (
	Orientation0   ImageOrientation = 0x0000
	Orientation90  ImageOrientation = 0x55A0
	Orientation180 ImageOrientation = 0x59A0
	Orientation270 ImageOrientation = 0x5C38
)

// OrientationMinus90, OrientationMinus180, and OrientationMinus270 are
// aliases for the equivalent positive rotation, for callers that think of
// the rotation as negative (counter-clockwise) rather than positive.
const (
	OrientationMinus90  = Orientation270
	OrientationMinus180 = Orientation180
	OrientationMinus270 = Orientation90
)

// Degrees returns the clockwise rotation in degrees represented by o, or -1
// if o is not one of the four recognized values.
func (o ImageOrientation) Degrees() int {
	switch o {
	case Orientation0:
		return 0
	case Orientation90:
		return 90
	case Orientation180:
		return 180
	case Orientation270:
		return 270
	default:
		return -1
	}
}
