// Package buf contains overflow-safe offset arithmetic used when resolving
// array elements inside described structures.
package buf
