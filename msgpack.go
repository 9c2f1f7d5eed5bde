package rweb

import "github.com/vmihailenco/msgpack"

// msgpackMarshal and msgpackUnmarshal wrap the msgpack encoding used
// for persisted identity material. Package mesh encodes the field map
// with msgpack too, but calls the library directly. msgpack is LXMF's
// own wire format, so using it here keeps the persisted/encoded shapes
// close to what a real substrate would produce.
func msgpackMarshal(v interface{}) ([]byte, error) {
	return msgpack.Marshal(v)
}

func msgpackUnmarshal(b []byte, v interface{}) error {
	return msgpack.Unmarshal(b, v)
}
