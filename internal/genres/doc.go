// Package genres maps free-form genre names onto the catalog's recommendation seed vocabulary.
//
// [Match] implements the two pass matcher: exact case-insensitive matches win outright, otherwise
// substring matches in either direction are collected (at most five).
//
// [Resolver] keeps the vocabulary for 24 hours of wall-clock time. An optional shared tier
// ([RedisCache]) lets several processes reuse one fetch; it disables itself on the first Redis error
// and the in-process tier keeps working.
package genres
