package ratchet

import (
	"bytes"
	"sort"

	"olmsession/crypto/curve25519"
	"olmsession/wire/varint"
)

// pickle field layout, in order:
//
//	dh_self.public (32) | dh_self.private (32)
//	has_dh_remote (1) | dh_remote (32, present iff has_dh_remote)
//	root_key (32)
//	has_chain_send (1) | chain_send (32, present iff has_chain_send)
//	has_chain_recv (1) | chain_recv (32, present iff has_chain_recv)
//	Ns (varint) | Nr (varint) | PN (varint)
//	skipped_count (varint) | skipped_count * (ratchet_pub (32) | counter (varint) | message_key (32)),
//	  sorted by ratchet_pub bytes, then counter
const keyLen = curve25519.KeyLength

// PickleLength returns the exact number of bytes Pickle will write for the
// ratchet's current state.
func (r *Ratchet) PickleLength() int {
	n := keyLen + keyLen // dh_self
	n += 1
	if r.state.DHRemote != nil {
		n += keyLen
	}
	n += keyLen // root key
	n += 1
	if r.state.ChainKeySend != nil {
		n += keyLen
	}
	n += 1
	if r.state.ChainKeyRecv != nil {
		n += keyLen
	}
	n += varint.Uint64Len(uint64(r.state.Ns))
	n += varint.Uint64Len(uint64(r.state.Nr))
	n += varint.Uint64Len(uint64(r.state.PN))
	n += varint.Uint64Len(uint64(len(r.state.SkippedKeys)))
	for id := range r.state.SkippedKeys {
		n += keyLen
		n += varint.Uint64Len(uint64(id.Counter))
		n += keyLen
	}
	return n
}

// Pickle serialises the ratchet's state into out, which must be at least
// PickleLength() bytes, and returns the number of bytes written. Field order
// is fixed so that two independently pickled ratchets in the same state
// produce byte-identical output.
func (r *Ratchet) Pickle(out []byte) (int, error) {
	need := r.PickleLength()
	if len(out) < need {
		return -1, ErrOutputBufferTooSmall
	}
	buf := out[:0]
	buf = append(buf, r.state.DHSelf.Public[:]...)
	buf = append(buf, r.state.DHSelf.Private[:]...)

	if r.state.DHRemote != nil {
		buf = append(buf, 1)
		buf = append(buf, r.state.DHRemote[:]...)
	} else {
		buf = append(buf, 0)
	}

	buf = append(buf, r.state.RootKey[:]...)

	if r.state.ChainKeySend != nil {
		buf = append(buf, 1)
		buf = append(buf, r.state.ChainKeySend[:]...)
	} else {
		buf = append(buf, 0)
	}
	if r.state.ChainKeyRecv != nil {
		buf = append(buf, 1)
		buf = append(buf, r.state.ChainKeyRecv[:]...)
	} else {
		buf = append(buf, 0)
	}

	buf = varint.AppendUint64(buf, uint64(r.state.Ns))
	buf = varint.AppendUint64(buf, uint64(r.state.Nr))
	buf = varint.AppendUint64(buf, uint64(r.state.PN))

	buf = varint.AppendUint64(buf, uint64(len(r.state.SkippedKeys)))
	ids := make([]SkippedKeyID, 0, len(r.state.SkippedKeys))
	for id := range r.state.SkippedKeys {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if c := bytes.Compare(ids[i].RatchetPub[:], ids[j].RatchetPub[:]); c != 0 {
			return c < 0
		}
		return ids[i].Counter < ids[j].Counter
	})
	for _, id := range ids {
		key := r.state.SkippedKeys[id]
		buf = append(buf, id.RatchetPub[:]...)
		buf = varint.AppendUint64(buf, uint64(id.Counter))
		buf = append(buf, key[:]...)
	}

	return len(buf), nil
}

// Unpickle reconstructs a Ratchet from bytes written by Pickle.
func Unpickle(data []byte) (*Ratchet, error) {
	r := &Ratchet{state: State{SkippedKeys: make(map[SkippedKeyID][32]byte)}}

	take := func(n int) ([]byte, bool) {
		if len(data) < n {
			return nil, false
		}
		field := data[:n]
		data = data[n:]
		return field, true
	}

	pub, ok := take(keyLen)
	if !ok {
		return nil, ErrCorruptedPickle
	}
	copy(r.state.DHSelf.Public[:], pub)
	priv, ok := take(keyLen)
	if !ok {
		return nil, ErrCorruptedPickle
	}
	copy(r.state.DHSelf.Private[:], priv)

	hasRemote, ok := take(1)
	if !ok {
		return nil, ErrCorruptedPickle
	}
	if hasRemote[0] != 0 {
		remote, ok := take(keyLen)
		if !ok {
			return nil, ErrCorruptedPickle
		}
		var pk curve25519.PublicKey
		copy(pk[:], remote)
		r.state.DHRemote = &pk
	}

	root, ok := take(keyLen)
	if !ok {
		return nil, ErrCorruptedPickle
	}
	copy(r.state.RootKey[:], root)

	hasSend, ok := take(1)
	if !ok {
		return nil, ErrCorruptedPickle
	}
	if hasSend[0] != 0 {
		send, ok := take(keyLen)
		if !ok {
			return nil, ErrCorruptedPickle
		}
		var ck [32]byte
		copy(ck[:], send)
		r.state.ChainKeySend = &ck
	}

	hasRecv, ok := take(1)
	if !ok {
		return nil, ErrCorruptedPickle
	}
	if hasRecv[0] != 0 {
		recv, ok := take(keyLen)
		if !ok {
			return nil, ErrCorruptedPickle
		}
		var ck [32]byte
		copy(ck[:], recv)
		r.state.ChainKeyRecv = &ck
	}

	ns, n, ok := varint.ReadUint64(data)
	if !ok {
		return nil, ErrCorruptedPickle
	}
	data = data[n:]
	r.state.Ns = uint32(ns)

	nr, n, ok := varint.ReadUint64(data)
	if !ok {
		return nil, ErrCorruptedPickle
	}
	data = data[n:]
	r.state.Nr = uint32(nr)

	pn, n, ok := varint.ReadUint64(data)
	if !ok {
		return nil, ErrCorruptedPickle
	}
	data = data[n:]
	r.state.PN = uint32(pn)

	count, n, ok := varint.ReadUint64(data)
	if !ok {
		return nil, ErrCorruptedPickle
	}
	data = data[n:]

	for i := uint64(0); i < count; i++ {
		ratchetPub, ok := take(keyLen)
		if !ok {
			return nil, ErrCorruptedPickle
		}
		counter, n, ok := varint.ReadUint64(data)
		if !ok {
			return nil, ErrCorruptedPickle
		}
		data = data[n:]
		key, ok := take(keyLen)
		if !ok {
			return nil, ErrCorruptedPickle
		}
		var id SkippedKeyID
		copy(id.RatchetPub[:], ratchetPub)
		id.Counter = uint32(counter)
		var mk [32]byte
		copy(mk[:], key)
		r.state.SkippedKeys[id] = mk
	}

	return r, nil
}
