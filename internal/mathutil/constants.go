package mathutil

import "math"

// Preview camera matrices. Skeletal sources are authored Z-up, previews are Y-up.
var (
	// ModelFlip converts Z-up to Y-up: Rx(-90°)
	ModelFlip = RotX(math.Pi / -2)

	// PreviewView looks slightly down at the model from its front-left.
	// Rx(-15°) · Ry(30°) · ModelFlip
	PreviewView = Mat3Mul(Mat3Mul(RotX(Deg2Rad(-15)), RotY(Deg2Rad(30))), ModelFlip)

	// FrontView faces the model straight on.
	FrontView = ModelFlip
)

// ViewByName maps a config camera name to its view matrix.
func ViewByName(name string) (Mat3, bool) {
	switch name {
	case "", "preview":
		return PreviewView, true
	case "front":
		return FrontView, true
	case "side":
		return Mat3Mul(RotY(Deg2Rad(90)), ModelFlip), true
	case "back":
		return Mat3Mul(RotY(math.Pi), ModelFlip), true
	}
	return Mat3{}, false
}
