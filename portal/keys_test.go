package portal

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustNibbles(t *testing.T, unpacked ...byte) Nibbles {
	t.Helper()
	n, err := NewNibbles(unpacked)
	require.NoError(t, err)
	return n
}

func TestKeyEncodings(t *testing.T) {
	addressHash := common.HexToHash("0x1111111111111111111111111111111111111111111111111111111111111111")
	nodeHash := common.HexToHash("0x2222222222222222222222222222222222222222222222222222222222222222")

	tests := []struct {
		name    string
		key     ContentKey
		network Network
		want    string
	}{
		{
			name:    "block header",
			key:     BlockHeaderKey{BlockHash: nodeHash},
			network: HistoryNetwork,
			want:    "0x00" + nodeHash.Hex()[2:],
		},
		{
			name:    "account trie node root",
			key:     AccountTrieNodeKey{Path: mustNibbles(t), NodeHash: nodeHash},
			network: StateNetwork,
			want:    "0x20" + "24000000" + nodeHash.Hex()[2:] + "00",
		},
		{
			name:    "account trie node odd path",
			key:     AccountTrieNodeKey{Path: mustNibbles(t, 1, 2, 3), NodeHash: nodeHash},
			network: StateNetwork,
			want:    "0x20" + "24000000" + nodeHash.Hex()[2:] + "1123",
		},
		{
			name:    "contract storage trie node",
			key:     ContractStorageTrieNodeKey{AddressHash: addressHash, Path: mustNibbles(t, 0xa, 0xb), NodeHash: nodeHash},
			network: StateNetwork,
			want:    "0x21" + addressHash.Hex()[2:] + "44000000" + nodeHash.Hex()[2:] + "00ab",
		},
		{
			name:    "contract bytecode",
			key:     ContractBytecodeKey{AddressHash: addressHash, CodeHash: nodeHash},
			network: StateNetwork,
			want:    "0x22" + addressHash.Hex()[2:] + nodeHash.Hex()[2:],
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := tt.key.Encode()
			assert.Equal(t, tt.want, hexutil.Encode(encoded))
			assert.Equal(t, tt.network, tt.key.Network())
			assert.Equal(t, encoded[0], tt.key.Selector())

			decoded, err := DecodeKey(encoded)
			require.NoError(t, err)
			assert.Equal(t, encoded, decoded.Encode())
		})
	}
}

func TestKeysDistinguishPaths(t *testing.T) {
	nodeHash := common.HexToHash("0x01")
	even := AccountTrieNodeKey{Path: mustNibbles(t, 0, 1), NodeHash: nodeHash}
	odd := AccountTrieNodeKey{Path: mustNibbles(t, 1), NodeHash: nodeHash}
	assert.NotEqual(t, even.Encode(), odd.Encode())
	assert.NotEqual(t, ContentID(even), ContentID(odd))
}

func TestContentID(t *testing.T) {
	key := BlockHeaderKey{BlockHash: common.HexToHash("0x01")}
	assert.Equal(t, ContentID(key), ContentID(BlockHeaderKey{BlockHash: common.HexToHash("0x01")}))
	assert.NotEqual(t, ContentID(key), ContentID(BlockHeaderKey{BlockHash: common.HexToHash("0x02")}))
}

func TestDecodeKeyRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
		err  error
	}{
		{"empty", "0x", ErrEncoding},
		{"unknown selector", "0x30", ErrUnknownSelector},
		{"short header key", "0x0011", ErrEncoding},
		{"short bytecode key", "0x22" + common.Hash{}.Hex()[2:], ErrEncoding},
		{"bad path offset", "0x20" + "25000000" + common.Hash{}.Hex()[2:] + "00", ErrEncoding},
		{"missing path", "0x20" + "24000000" + common.Hash{}.Hex()[2:], ErrEncoding},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := hexutil.Decode(tt.data)
			if err != nil {
				data = []byte{}
			}
			_, err = DecodeKey(data)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}
