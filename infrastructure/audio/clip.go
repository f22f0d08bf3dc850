package audio

import (
	"bytes"
	"encoding/binary"
	"io"
	"path"
	"strings"
	"time"

	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/pkg/errors"
)

// Clip é um trecho de áudio decodificado: PCM 16-bit LE estéreo intercalado,
// já na taxa de amostragem do contexto de reprodução. A duração natural é
// conhecida no momento da decodificação.
type Clip struct {
	PCM        []byte
	SampleRate int
	Duration   time.Duration
}

const (
	bytesPerFrame = 4 // 2 canais x 16 bits
)

// decodeClip decodifica o corpo baixado para PCM na taxa alvo. O formato é
// escolhido pela extensão da URL, com o content-type como desempate.
func decodeClip(sourceURL, contentType string, data []byte, targetRate int) (*Clip, error) {
	switch clipFormat(sourceURL, contentType) {
	case "mp3":
		return decodeMP3(data, targetRate)
	case "ogg":
		return decodeOgg(data, targetRate)
	case "wav":
		return decodeWAV(data, targetRate)
	}
	// Uploads antigos não têm extensão; MP3 é o formato dos apps de gravação.
	return decodeMP3(data, targetRate)
}

func clipFormat(sourceURL, contentType string) string {
	ext := strings.ToLower(path.Ext(strings.SplitN(sourceURL, "?", 2)[0]))
	switch ext {
	case ".mp3":
		return "mp3"
	case ".ogg", ".oga":
		return "ogg"
	case ".wav":
		return "wav"
	}

	switch {
	case strings.Contains(contentType, "mpeg"):
		return "mp3"
	case strings.Contains(contentType, "ogg"):
		return "ogg"
	case strings.Contains(contentType, "wav"):
		return "wav"
	}

	return ""
}

func decodeMP3(data []byte, targetRate int) (*Clip, error) {
	decoder, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "erro ao decodificar MP3")
	}

	pcm, err := io.ReadAll(decoder)
	if err != nil {
		return nil, errors.Wrap(err, "erro ao ler PCM do MP3")
	}

	return newClip(pcm, decoder.SampleRate(), targetRate), nil
}

func decodeOgg(data []byte, targetRate int) (*Clip, error) {
	samples, format, err := oggvorbis.ReadAll(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "erro ao decodificar OGG/Vorbis")
	}

	pcm := floatToStereoPCM(samples, format.Channels)
	return newClip(pcm, format.SampleRate, targetRate), nil
}

// decodeWAV aceita apenas PCM linear 16-bit, que é o que os uploads geram.
func decodeWAV(data []byte, targetRate int) (*Clip, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, errors.New("cabeçalho WAV inválido")
	}

	var sampleRate int
	var channels int
	var bitsPerSample int
	var samples []byte

	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		if body+chunkSize > len(data) {
			chunkSize = len(data) - body
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return nil, errors.New("chunk fmt truncado")
			}
			audioFormat := int(binary.LittleEndian.Uint16(data[body : body+2]))
			if audioFormat != 1 {
				return nil, errors.Errorf("formato WAV não suportado: %d", audioFormat)
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
		case "data":
			samples = data[body : body+chunkSize]
		}

		// Chunks têm tamanho par; o byte de padding não conta no chunkSize.
		offset = body + chunkSize
		if chunkSize%2 == 1 {
			offset++
		}
	}

	if sampleRate == 0 || samples == nil {
		return nil, errors.New("arquivo WAV sem chunks fmt/data")
	}
	if bitsPerSample != 16 {
		return nil, errors.Errorf("WAV com %d bits não suportado", bitsPerSample)
	}

	pcm := samples
	if channels == 1 {
		pcm = monoToStereo(samples)
	}

	return newClip(pcm, sampleRate, targetRate), nil
}

func newClip(pcm []byte, sourceRate, targetRate int) *Clip {
	if sourceRate != targetRate && sourceRate > 0 {
		pcm = resample(pcm, sourceRate, targetRate)
	}

	frames := len(pcm) / bytesPerFrame
	duration := time.Duration(frames) * time.Second / time.Duration(targetRate)

	return &Clip{
		PCM:        pcm,
		SampleRate: targetRate,
		Duration:   duration,
	}
}

// resample faz interpolação linear por frame estéreo. Clipes de celebração
// duram poucos segundos; qualidade de reamostragem não é uma preocupação.
func resample(pcm []byte, sourceRate, targetRate int) []byte {
	srcFrames := len(pcm) / bytesPerFrame
	if srcFrames == 0 {
		return nil
	}

	dstFrames := int(int64(srcFrames) * int64(targetRate) / int64(sourceRate))
	out := make([]byte, dstFrames*bytesPerFrame)

	for i := 0; i < dstFrames; i++ {
		pos := float64(i) * float64(sourceRate) / float64(targetRate)
		j := int(pos)
		frac := pos - float64(j)
		k := j + 1
		if k >= srcFrames {
			k = srcFrames - 1
		}

		for ch := 0; ch < 2; ch++ {
			a := int16(binary.LittleEndian.Uint16(pcm[j*bytesPerFrame+ch*2:]))
			b := int16(binary.LittleEndian.Uint16(pcm[k*bytesPerFrame+ch*2:]))
			v := float64(a) + (float64(b)-float64(a))*frac
			binary.LittleEndian.PutUint16(out[i*bytesPerFrame+ch*2:], uint16(int16(v)))
		}
	}

	return out
}

func monoToStereo(samples []byte) []byte {
	frames := len(samples) / 2
	out := make([]byte, frames*bytesPerFrame)
	for i := 0; i < frames; i++ {
		copy(out[i*4:i*4+2], samples[i*2:i*2+2])
		copy(out[i*4+2:i*4+4], samples[i*2:i*2+2])
	}
	return out
}

func floatToStereoPCM(samples []float32, channels int) []byte {
	if channels < 1 {
		return nil
	}

	frames := len(samples) / channels
	out := make([]byte, frames*bytesPerFrame)

	for i := 0; i < frames; i++ {
		left := samples[i*channels]
		right := left
		if channels > 1 {
			right = samples[i*channels+1]
		}

		binary.LittleEndian.PutUint16(out[i*4:], uint16(floatToInt16(left)))
		binary.LittleEndian.PutUint16(out[i*4+2:], uint16(floatToInt16(right)))
	}

	return out
}

func floatToInt16(f float32) int16 {
	v := f * 32767
	if v > 32767 {
		v = 32767
	}
	if v < -32768 {
		v = -32768
	}
	return int16(v)
}
