package types

import (
	"bytes"
	"encoding/json"
	"math/big"
	"os"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBlockData(number int64) *BlockData {
	data := &BlockData{
		Header: &gethtypes.Header{
			Number:     big.NewInt(number),
			Difficulty: big.NewInt(17_000_000_000),
			GasLimit:   5000,
			Root:       common.HexToHash("0xd7f8974fb5ac78d9ac099b9ad5018bedc2ce0a72dad1827a1709da30580f0544"),
			Extra:      []byte("portal"),
		},
		State: []*AccountState{
			{
				Address:      common.HexToAddress("0x5a0b54d5dc17e0aadc383d2db43b0a0d3e029c4c"),
				AccountProof: []hexutil.Bytes{{0xc0}, {0xc1, 0x80}},
				Balance:      NewWord(1000),
				Nonce:        3,
				StorageProof: []*StorageItem{
					{Key: NewWord(1), Value: NewWord(2), Proof: []hexutil.Bytes{{0xc0}}},
				},
				Code: hexutil.Bytes{0x60, 0x00},
			},
			{
				Address:      common.HexToAddress("0x01"),
				AccountProof: []hexutil.Bytes{{0xc0}},
			},
			{
				Address:      common.HexToAddress("0x02"),
				AccountProof: []hexutil.Bytes{{0xc0}},
				CodeHash:     common.HexToHash("0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"),
				Code:         hexutil.Bytes{},
			},
		},
		HeaderAccumulatorProof: new(AccumulatorProof),
	}
	for i := range data.HeaderAccumulatorProof {
		data.HeaderAccumulatorProof[i] = common.BigToHash(big.NewInt(int64(i)))
	}
	return data
}

func TestBlockDataJSON(t *testing.T) {
	data := testBlockData(1_000_000)

	var buf bytes.Buffer
	require.NoError(t, data.WriteJSON(&buf))
	decoded, err := ReadBlockData(&buf)
	require.NoError(t, err)

	assert.Equal(t, data.BlockHash(), decoded.BlockHash())
	assert.Equal(t, uint64(1_000_000), decoded.BlockNumber())
	assert.Equal(t, data.HeaderAccumulatorProof, decoded.HeaderAccumulatorProof)
	require.Len(t, decoded.State, 3)
	assert.Equal(t, data.State[0], decoded.State[0])
	assert.True(t, decoded.State[0].HasCode())
	assert.False(t, decoded.State[1].HasCode())
	assert.Nil(t, decoded.State[1].Code)
	assert.True(t, decoded.State[2].HasCode())
	assert.Empty(t, decoded.State[2].Code)

	var again bytes.Buffer
	require.NoError(t, decoded.WriteJSON(&again))
	reread, err := ReadBlockData(&again)
	require.NoError(t, err)
	assert.True(t, reread.State[2].HasCode())
	assert.False(t, reread.State[1].HasCode())
	assert.Equal(t, [][]byte{{0xc0}, {0xc1, 0x80}}, decoded.State[0].RawAccountProof())
	assert.Equal(t, [][]byte{{0xc0}}, decoded.State[0].StorageProof[0].RawProof())
}

func TestBlockDataGetProofFormat(t *testing.T) {
	input := `{
		"header": null,
		"headerAccumulatorProof": [],
		"state": [{
			"address": "0x0000000000000000000000000000000000000001",
			"accountProof": ["0xc0"],
			"balance": "0x0",
			"codeHash": "0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470",
			"nonce": "0x0",
			"storageHash": "0x56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421",
			"storageProof": [{"key": "0x0000000000000000000000000000000000000000000000000000000000000004", "value": "0x10", "proof": []}]
		}]
	}`
	_, err := ReadBlockData(strings.NewReader(input))
	assert.ErrorIs(t, err, ErrAccumulatorProofLen)

	hashes := strings.TrimSuffix(strings.Repeat(`"0x`+strings.Repeat("0", 64)+`",`, AccumulatorProofLength), ",")
	input = strings.Replace(input, `"headerAccumulatorProof": []`, `"headerAccumulatorProof": [`+hashes+`]`, 1)
	_, err = ReadBlockData(strings.NewReader(input))
	assert.ErrorIs(t, err, ErrMissingHeader)
}

func TestBlockDataValidate(t *testing.T) {
	data := testBlockData(1)
	require.NoError(t, data.Validate())

	data.State[1].AccountProof = nil
	assert.ErrorIs(t, data.Validate(), ErrEmptyAccountProof)

	data = testBlockData(1)
	data.State[0].StorageProof = append(data.State[0].StorageProof, nil)
	assert.Error(t, data.Validate())

	data = testBlockData(1)
	data.State = append(data.State, nil)
	assert.Error(t, data.Validate())

	data = testBlockData(1)
	data.Header = nil
	assert.ErrorIs(t, data.Validate(), ErrMissingHeader)

	data = testBlockData(1)
	data.HeaderAccumulatorProof = nil
	assert.ErrorIs(t, data.Validate(), ErrMissingProof)
}

func TestBlockDataMissingAccumulatorProof(t *testing.T) {
	data := testBlockData(1)
	data.HeaderAccumulatorProof = nil

	var buf bytes.Buffer
	require.NoError(t, data.WriteJSON(&buf))
	assert.Contains(t, buf.String(), `"headerAccumulatorProof": null`)
	_, err := ReadBlockData(&buf)
	assert.ErrorIs(t, err, ErrMissingProof)

	input := `{"header": ` + headerJSON(t, data) + `, "state": []}`
	_, err = ReadBlockData(strings.NewReader(input))
	assert.ErrorIs(t, err, ErrMissingProof)
}

func headerJSON(t *testing.T, data *BlockData) string {
	out, err := json.Marshal(data.Header)
	require.NoError(t, err)
	return string(out)
}

func writeBlockData(t *testing.T, path string, data *BlockData) {
	var buf bytes.Buffer
	require.NoError(t, data.WriteJSON(&buf))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
}

func TestLoadBlockDataFromDir(t *testing.T) {
	dir := t.TempDir()
	writeBlockData(t, BlockDataPath(dir, 5), testBlockData(5))
	writeBlockData(t, BlockDataPath(dir, 7), testBlockData(6))

	data, err := LoadBlockDataFromDir(dir, 5)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), data.BlockNumber())

	_, err = LoadBlockDataFromDir(dir, 7)
	assert.ErrorContains(t, err, "holds block 6")

	_, err = LoadBlockDataFromDir(dir, 8)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
