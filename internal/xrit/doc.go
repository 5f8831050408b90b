// Package xrit decodes the framed header records of LRIT/HRIT transport files.
//
// A transport file starts with a header region made of variable-length
// records (type byte, big-endian length, payload). The helpers here walk that
// region with a fixed hop bound so truncated or garbled files terminate
// quickly, extract the routing metadata the organizer needs, compute the
// CRC-16 used for integrity checks, and rename received files to the name
// carried in their annotation record.
package xrit
