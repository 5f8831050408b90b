package xrit

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/edsrzf/mmap-go"

	"xritd/internal/services"
	"xritd/internal/textutil"
)

// MaxHeaderLength bounds the header region ReadHeader is willing to load.
const MaxHeaderLength = 64 << 10

// ReadHeader loads the header region of a transport file. The primary header
// supplies the region length; files that do not open with one, or declare a
// length outside [PrimaryHeaderLength, MaxHeaderLength], are rejected with a
// validation error.
func ReadHeader(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transport file: %w", err)
	}
	defer f.Close()

	primary := make([]byte, PrimaryHeaderLength)
	if _, err := io.ReadFull(f, primary); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, services.Wrap(services.ErrValidation, "xrit", "read header", "file shorter than primary header", nil)
		}
		return nil, fmt.Errorf("read primary header: %w", err)
	}
	if primary[0] != RecordPrimary || binary.BigEndian.Uint16(primary[1:3]) != PrimaryHeaderLength {
		return nil, services.Wrap(services.ErrValidation, "xrit", "read header", "missing primary header record", nil)
	}
	length := binary.BigEndian.Uint32(primary[4:8])
	if length < PrimaryHeaderLength || length > MaxHeaderLength {
		return nil, services.Wrap(services.ErrValidation, "xrit", "read header", fmt.Sprintf("header length %d out of range", length), nil)
	}

	header := make([]byte, length)
	copy(header, primary)
	if _, err := io.ReadFull(f, header[PrimaryHeaderLength:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, services.Wrap(services.ErrValidation, "xrit", "read header", "header region truncated", nil)
		}
		return nil, fmt.Errorf("read header region: %w", err)
	}
	return header, nil
}

// DecodedName returns the sanitised annotation name of a transport file, or
// "" when the file carries no usable name.
func DecodedName(path string) (string, error) {
	header, err := ReadHeader(path)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			return "", nil
		}
		return "", err
	}
	name := ExtractFilename(header)
	if name == UnknownName {
		return "", nil
	}
	name = textutil.SanitizeFileName(filepath.Base(textutil.StripControl(name)))
	if name == "" || name == "." {
		return "", nil
	}
	return name, nil
}

// RenameToDecodedName moves a received file to the name carried in its
// annotation record, inside the same directory. It returns the resulting path
// and whether a name was found. Files without a usable name, including files
// that are not transport files at all, stay where they are.
func RenameToDecodedName(path string) (string, bool, error) {
	name, err := DecodedName(path)
	if err != nil {
		return path, false, err
	}
	if name == "" {
		return path, false, nil
	}
	target := filepath.Join(filepath.Dir(path), name)
	if target == filepath.Clean(path) {
		return path, true, nil
	}
	if err := os.Rename(path, target); err != nil {
		return path, false, fmt.Errorf("rename %s to %s: %w", filepath.Base(path), name, err)
	}
	return target, true, nil
}

// ChecksumFile returns the CRC16 of a whole file.
func ChecksumFile(path string) (uint16, error) {
	var sum uint16
	err := withMappedFile(path, func(data []byte) error {
		sum = CRC16(data)
		return nil
	})
	return sum, err
}

// VerifyTrailer checks that the last two bytes of a file hold the big-endian
// CRC16 of everything before them.
func VerifyTrailer(path string) error {
	return withMappedFile(path, func(data []byte) error {
		if len(data) < PrimaryHeaderLength+2 {
			return services.Wrap(services.ErrValidation, "xrit", "verify trailer", "file too short for crc trailer", nil)
		}
		body := data[:len(data)-2]
		want := binary.BigEndian.Uint16(data[len(data)-2:])
		if got := CRC16(body); got != want {
			return services.Wrap(services.ErrValidation, "xrit", "verify trailer", fmt.Sprintf("crc mismatch: got %04x want %04x", got, want), nil)
		}
		return nil
	})
}

// ReadDataField returns the parsed header and a copy of the data field that
// follows it.
func ReadDataField(path string) (Header, []byte, error) {
	var (
		header Header
		data   []byte
	)
	err := withMappedFile(path, func(content []byte) error {
		h, err := ParseHeader(content)
		if err != nil {
			return err
		}
		if h.HeaderLength < PrimaryHeaderLength || uint64(h.HeaderLength) > uint64(len(content)) {
			return services.Wrap(services.ErrValidation, "xrit", "read data field", "header region truncated", nil)
		}
		body := content[h.HeaderLength:]
		if h.DataLength > 0 {
			size := (h.DataLength + 7) / 8
			if size < uint64(len(body)) {
				body = body[:size]
			}
		}
		header = h
		data = append([]byte(nil), body...)
		return nil
	})
	return header, data, err
}

func withMappedFile(path string, fn func([]byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open transport file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat transport file: %w", err)
	}
	if info.Size() == 0 {
		return fn(nil)
	}
	mapped, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return fmt.Errorf("map transport file: %w", err)
	}
	defer mapped.Unmap()
	return fn(mapped)
}
