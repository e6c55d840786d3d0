package math

// Vec3 represents a 3D vector
type Vec3 struct {
	X, Y, Z float32
}

/**
 * @brief a 4x4 matrix used for object transformations. Vectors are treated as
 * rows, so the translation lives in elements 12, 13 and 14.
 */
type Mat4 struct {
	/** @brief The matrix elements */
	Data [16]float32
}

// Affine3x4 is a row-major 3x4 matrix as consumed by acceleration structure
// instances: the upper three rows of a column-vector transform.
type Affine3x4 [12]float32
