package main

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"os"
)

const (
	clientGQTPProto      uint32 = 0x47515450 // "GQTP"
	clientGQTPHeaderSize        = 12
	clientGQTPFlagTail   byte   = 1 << 1
)

// runClient implements spec.md §6's `-c` mode: dest is a hostname
// (default "localhost"), connecting out to the dispatch server and
// relaying newline-terminated stdin lines as GQTP requests, printing
// each response body until a TAIL-flagged frame closes the exchange.
func runClient(dest string, port int) error {
	if dest == "" {
		dest = "localhost"
	}
	conn, err := net.Dial("tcp", fmt.Sprintf("%s:%d", dest, port))
	if err != nil {
		return fmt.Errorf("ftsengine: connect: %w", err)
	}
	defer conn.Close()

	scanner := bufio.NewScanner(os.Stdin)
	reader := bufio.NewReader(conn)
	for scanner.Scan() {
		line := scanner.Bytes()
		if err := sendGQTPRequest(conn, line); err != nil {
			return err
		}
		for {
			body, tail, err := readGQTPResponse(reader)
			if err != nil {
				return err
			}
			os.Stdout.Write(body)
			os.Stdout.Write([]byte("\n"))
			if tail {
				break
			}
		}
	}
	return scanner.Err()
}

func sendGQTPRequest(w io.Writer, body []byte) error {
	header := make([]byte, clientGQTPHeaderSize)
	binary.BigEndian.PutUint32(header[0:4], clientGQTPProto)
	header[4] = 0 // qtype: plain request
	header[5] = 0
	binary.BigEndian.PutUint16(header[6:8], 0)
	binary.BigEndian.PutUint32(header[8:12], uint32(len(body)))
	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

func readGQTPResponse(r io.Reader) (body []byte, tail bool, err error) {
	header := make([]byte, clientGQTPHeaderSize)
	if _, err = io.ReadFull(r, header); err != nil {
		return nil, false, err
	}
	size := binary.BigEndian.Uint32(header[8:12])
	body = make([]byte, size)
	if _, err = io.ReadFull(r, body); err != nil {
		return nil, false, err
	}
	tail = header[5]&clientGQTPFlagTail != 0
	return body, tail, nil
}
