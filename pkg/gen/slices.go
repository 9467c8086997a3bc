package gen

// DeleteFromSliceUnordered removes element i by swapping in the last element.
// Order is not preserved.
func DeleteFromSliceUnordered[T any](slice []T, i int) []T {
	slice[i] = slice[len(slice)-1]
	return slice[:len(slice)-1]
}
