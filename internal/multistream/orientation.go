package multistream

// Orientation classifies a video by aspect ratio. The classification drives
// both ingest URL selection and the crop/scale transform between a source
// and a destination.
type Orientation int

const (
	OrientationAuto Orientation = iota
	OrientationHorizontal
	OrientationVertical
	OrientationSquare
)

const squareTolerance = 0.05

func (o Orientation) String() string {
	switch o {
	case OrientationHorizontal:
		return "horizontal"
	case OrientationVertical:
		return "vertical"
	case OrientationSquare:
		return "square"
	default:
		return "auto"
	}
}

func (o Orientation) valid() bool {
	return o >= OrientationAuto && o <= OrientationSquare
}

// DetectOrientation classifies video dimensions. Zero dimensions cannot be
// classified and yield Auto.
func DetectOrientation(width, height int) Orientation {
	if width == 0 || height == 0 {
		return OrientationAuto
	}
	aspect := float64(width) / float64(height)
	diff := aspect - 1
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff < squareTolerance:
		return OrientationSquare
	case aspect < 1:
		return OrientationVertical
	default:
		return OrientationHorizontal
	}
}

// BuildFilter returns the crop/scale expression converting source into
// target, or the empty string when no conversion applies. The directed pairs
// are checked in a fixed order, then a catch-all for square targets; pairs
// outside the table produce no transform.
func BuildFilter(source, target Orientation) string {
	if source == target {
		return ""
	}
	switch {
	case source == OrientationHorizontal && target == OrientationVertical:
		return "crop=ih*9/16:ih,scale=1080:1920"
	case source == OrientationVertical && target == OrientationHorizontal:
		return "crop=iw:iw*9/16,scale=1920:1080"
	case source == OrientationSquare && target == OrientationHorizontal:
		return "scale=1920:1080,setsar=1"
	case source == OrientationSquare && target == OrientationVertical:
		return "scale=1080:1920,setsar=1"
	case target == OrientationSquare:
		return "scale=1080:1080,setsar=1"
	default:
		return ""
	}
}
