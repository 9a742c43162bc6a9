package dataset

import (
	"archive/tar"
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestReadShardPairsEntries(t *testing.T) {
	dir := t.TempDir()
	shard := filepath.Join(dir, "shard-000000.tar")
	writeShard(t, shard, []filePair{
		{key: "000001", imageExt: ".jpg", image: []byte("jpeg"), label: 3},
		{key: "000002", imageExt: ".PNG", image: []byte("png"), label: 7},
	})

	records, err := ReadShard(shard, 4)
	if err != nil {
		t.Fatalf("ReadShard returned error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Key != "000001" || records[0].Label != 3 || string(records[0].Image) != "jpeg" {
		t.Fatalf("unexpected first record %+v", records[0])
	}
	if records[1].Key != "000002" || records[1].Label != 7 {
		t.Fatalf("unexpected second record %+v", records[1])
	}
}

func TestReadShardIncomplete(t *testing.T) {
	buf := &bytes.Buffer{}
	tw := tar.NewWriter(buf)
	addTarEntry(t, tw, "orphan.png", []byte("png"))
	tw.Close()
	if _, err := readRecords(buf, 4); err == nil {
		t.Fatal("expected an error for an unpaired image")
	}
}

func TestReadShardPendingOverflow(t *testing.T) {
	buf := &bytes.Buffer{}
	tw := tar.NewWriter(buf)
	for i := 0; i < 3; i++ {
		addTarEntry(t, tw, strconv.Itoa(i)+".png", []byte("png"))
	}
	tw.Close()
	if _, err := readRecords(buf, 2); !errors.Is(err, ErrPendingOverflow) {
		t.Fatalf("expected ErrPendingOverflow, got %v", err)
	}
}

func TestReadShardBadLabel(t *testing.T) {
	buf := &bytes.Buffer{}
	tw := tar.NewWriter(buf)
	addTarEntry(t, tw, "a.cls", []byte("seven"))
	tw.Close()
	if _, err := readRecords(buf, 4); err == nil {
		t.Fatal("expected a label parse error")
	}
}

func TestLoadRecordsAndSamples(t *testing.T) {
	root := t.TempDir()
	writeShard(t, filepath.Join(root, "shard-000000.tar"), []filePair{
		{key: "a", imageExt: ".png", image: digitPNG(t, 10), label: 1},
	})
	writeShard(t, filepath.Join(root, "shard-000001.tar"), []filePair{
		{key: "b", imageExt: ".png", image: digitPNG(t, 200), label: 4},
	})

	records, err := LoadRecords(root)
	if err != nil {
		t.Fatalf("LoadRecords: %v", err)
	}
	if len(records) != 2 || records[0].Key != "a" || records[1].Key != "b" {
		t.Fatalf("unexpected records %+v", records)
	}

	samples, err := TrainingSamples(records, 10)
	if err != nil {
		t.Fatalf("TrainingSamples: %v", err)
	}
	if len(samples[0].Input) != FeatureSize || len(samples[0].Target) != 10 || samples[1].Target[4] != 1 {
		t.Fatalf("unexpected sample shapes")
	}

	labeled, err := LabeledSamples(records)
	if err != nil {
		t.Fatalf("LabeledSamples: %v", err)
	}
	if labeled[1].Label != 4 {
		t.Fatalf("expected label 4, got %d", labeled[1].Label)
	}

	if _, err := TrainingSamples(records, 3); err == nil {
		t.Fatal("expected an error for a label outside the class range")
	}
}

func TestLoadRecordsEmptyRoot(t *testing.T) {
	if _, err := LoadRecords(t.TempDir()); err == nil {
		t.Fatal("expected an error for a root without shards")
	}
}

type filePair struct {
	key      string
	imageExt string
	image    []byte
	label    int
}

func writeShard(t *testing.T, path string, pairs []filePair) {
	t.Helper()
	buf := &bytes.Buffer{}
	tw := tar.NewWriter(buf)
	for _, pair := range pairs {
		addTarEntry(t, tw, pair.key+pair.imageExt, pair.image)
		addTarEntry(t, tw, pair.key+".cls", []byte(strconv.Itoa(pair.label)))
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write shard: %v", err)
	}
}

func addTarEntry(t *testing.T, tw *tar.Writer, name string, data []byte) {
	t.Helper()
	hdr := &tar.Header{Name: name, Size: int64(len(data)), Mode: 0o644}
	if err := tw.WriteHeader(hdr); err != nil {
		t.Fatalf("write header: %v", err)
	}
	if _, err := tw.Write(data); err != nil {
		t.Fatalf("write data: %v", err)
	}
}

func digitPNG(t *testing.T, shade uint8) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, ImageSize, ImageSize))
	for y := 0; y < ImageSize; y++ {
		for x := 0; x < ImageSize; x++ {
			img.SetGray(x, y, color.Gray{Y: shade})
		}
	}
	buf := &bytes.Buffer{}
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}
