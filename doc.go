// Package jpegr implements a pure-Go gain-map HDR JPEG codec.
//
// A JPEG-R file is a standard JPEG that carries an SDR rendering, an
// embedded low-resolution gain-map JPEG and a small binary metadata
// segment. Legacy decoders see a plain JPEG; this package computes the
// gain map on encode and recombines it with the SDR base on decode to
// reconstruct an HDR raster at a caller-chosen display boost.
//
// JPEG entropy coding is delegated to a pluggable codec (see
// internal/jpegx); the standard library encoder is used by default.
package jpegr
