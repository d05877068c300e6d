// SPDX-License-Identifier: GPL-3.0-or-later

package tracing

// ProcessCreate is the parsed payload of a process-create event.
type ProcessCreate struct {
	UniqueKey        uint64
	PID              uint32
	ParentPID        uint32
	SessionID        uint32
	ExitStatus       int32
	DirectoryTableBase uint64
	SID              string
	ImageName        string
	CommandLine      string
}

// ParseProcessCreate parses the process create/terminate payload: a fixed
// header (unique-key u64, pid u32, parent-pid u32, session u32,
// exit-status i32, directory-table-base u64) then a dynamic tail of
// {SID, image-name c-string, command-line utf-16le NUL-terminated}.
func ParseProcessCreate(payload []byte) (ProcessCreate, error) {
	c := newCursor(payload)
	var p ProcessCreate
	var err error
	if p.UniqueKey, err = c.u64le("uniqueKey"); err != nil {
		return p, err
	}
	if p.PID, err = c.u32le("pid"); err != nil {
		return p, err
	}
	if p.ParentPID, err = c.u32le("parentPid"); err != nil {
		return p, err
	}
	if p.SessionID, err = c.u32le("sessionId"); err != nil {
		return p, err
	}
	if p.ExitStatus, err = c.i32le("exitStatus"); err != nil {
		return p, err
	}
	if p.DirectoryTableBase, err = c.u64le("directoryTableBase"); err != nil {
		return p, err
	}
	if p.SID, err = c.cstring("sid"); err != nil {
		return p, err
	}
	if p.ImageName, err = c.cstring("imageName"); err != nil {
		return p, err
	}
	if p.CommandLine, err = c.utf16le("commandLine"); err != nil {
		return p, err
	}
	return p, nil
}

// FileCreate is the parsed payload of a file-create event.
type FileCreate struct {
	IRP           uint64
	ThreadID      uint32
	FileObject    uint64
	CreateOptions uint32
	Attributes    uint32
	ShareAccess   uint32
	OpenPath      string
}

// ParseFileCreate parses: IRP pointer, thread id, file-object,
// create-options, attributes, share-access, then an open-path utf-16le
// NUL-terminated string.
func ParseFileCreate(payload []byte) (FileCreate, error) {
	c := newCursor(payload)
	var f FileCreate
	var err error
	if f.IRP, err = c.u64le("irp"); err != nil {
		return f, err
	}
	if f.ThreadID, err = c.u32le("threadId"); err != nil {
		return f, err
	}
	if f.FileObject, err = c.u64le("fileObject"); err != nil {
		return f, err
	}
	if f.CreateOptions, err = c.u32le("createOptions"); err != nil {
		return f, err
	}
	if f.Attributes, err = c.u32le("attributes"); err != nil {
		return f, err
	}
	if f.ShareAccess, err = c.u32le("shareAccess"); err != nil {
		return f, err
	}
	if f.OpenPath, err = c.utf16le("openPath"); err != nil {
		return f, err
	}
	return f, nil
}

// registryHeaderSkipBytes is the heuristic skip used to locate the
// registry key name string tail.
//
// OPEN QUESTION: the source uses a heuristic ~24-byte offset to
// locate registry-key-name strings. This should be replaced with a proper
// vendor-manifest-driven parser; we keep the heuristic, named here, rather
// than silently guessing a different constant.
const registryHeaderSkipBytes = 24

// RegistrySet is the parsed payload of a registry-set event.
type RegistrySet struct {
	KeyName string
}

// ParseRegistrySet skips the fixed ~24-byte header (see
// [registryHeaderSkipBytes]) then reads a utf-16le NUL-terminated key name.
func ParseRegistrySet(payload []byte) (RegistrySet, error) {
	c := newCursor(payload)
	var r RegistrySet
	if err := c.skip("header", registryHeaderSkipBytes); err != nil {
		return r, err
	}
	keyName, err := c.utf16le("keyName")
	if err != nil {
		return r, err
	}
	r.KeyName = keyName
	return r, nil
}

// TCPConnect is the parsed payload of an IPv4 TCP-connect event.
type TCPConnect struct {
	Size     uint32
	DestIP   string
	SrcIP    string
	DestPort uint16
	SrcPort  uint16
}

// ParseTCPConnect parses: size, destination IPv4, source IPv4,
// destination port big-endian, source port big-endian.
func ParseTCPConnect(payload []byte) (TCPConnect, error) {
	c := newCursor(payload)
	var t TCPConnect
	var err error
	if t.Size, err = c.u32le("size"); err != nil {
		return t, err
	}
	if t.DestIP, err = c.ipv4be("destIp"); err != nil {
		return t, err
	}
	if t.SrcIP, err = c.ipv4be("srcIp"); err != nil {
		return t, err
	}
	if t.DestPort, err = c.u16be("destPort"); err != nil {
		return t, err
	}
	if t.SrcPort, err = c.u16be("srcPort"); err != nil {
		return t, err
	}
	return t, nil
}

// DNSQuery is the parsed payload of a dns-query event.
type DNSQuery struct {
	QueryName    string
	QueryType    uint32
	QueryOptions uint64
}

// ParseDNSQuery parses: query-name utf-16le NUL-terminated, query-type
// (u32 or u16 heuristic), query-options u64.
//
// OPEN QUESTION: the query-type field is u32 in most captures
// but some producers emit only a u16 when the record runs short by two
// bytes. We apply that heuristic here, explicitly, rather than silently
// guessing; a vendor-manifest-driven parser should replace this.
func ParseDNSQuery(payload []byte) (DNSQuery, error) {
	c := newCursor(payload)
	var d DNSQuery
	var err error
	if d.QueryName, err = c.utf16le("queryName"); err != nil {
		return d, err
	}
	switch {
	case c.remaining() >= 12:
		if d.QueryType, err = c.u32le("queryType"); err != nil {
			return d, err
		}
		if d.QueryOptions, err = c.u64le("queryOptions"); err != nil {
			return d, err
		}
	case c.remaining() >= 10:
		qtype16, err2 := c.u16le("queryType")
		if err2 != nil {
			return d, err2
		}
		d.QueryType = uint32(qtype16)
		if d.QueryOptions, err = c.u64le("queryOptions"); err != nil {
			return d, err
		}
	default:
		return d, &ParseError{Field: "queryType", Err: &errShortBuffer{"queryType", 10, c.remaining()}}
	}
	return d, nil
}
