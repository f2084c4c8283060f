// Package render превращает состояние холста в PNG.
package render

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/annel0/place-snapshot/internal/canvas"
)

// Image строит RGB-изображение холста через таблицу палитры
func Image(c *canvas.Canvas) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, canvas.Width, canvas.Height))
	colors := c.Colors()

	for y := 0; y < canvas.Height; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+canvas.Width*4]
		for x := 0; x < canvas.Width; x++ {
			rgb := colors[canvas.Index(x, y)].RGB()
			px := row[x*4 : x*4+4]
			px[0], px[1], px[2], px[3] = rgb.R, rgb.G, rgb.B, 255
		}
	}
	return img
}

// WritePNG кодирует изображение во временный файл рядом с path и
// переименовывает его на место только после успешной записи: по пути path
// оказывается либо полный PNG, либо прежнее содержимое.
func WritePNG(path string, img image.Image) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("не удалось создать временный файл для %s: %w", path, err)
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(f, img); err != nil {
		return fmt.Errorf("ошибка кодирования PNG: %w", err)
	}
	if err := f.Chmod(0644); err != nil {
		return fmt.Errorf("не удалось выставить права %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("не удалось закрыть %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("не удалось переместить PNG в %s: %w", path, err)
	}
	return nil
}

// Render рендерит холст и сохраняет PNG по пути path
func Render(c *canvas.Canvas, path string) error {
	return WritePNG(path, Image(c))
}
